package searchagent

import (
	"fmt"
	"strings"

	"ai-mail-workspace-be/pkg/mailbox"
)

const (
	ActionApplyFilters      = "APPLY_FILTERS"
	ActionShowSearchResults = "SHOW_SEARCH_RESULTS"
	ActionOpenEmail         = "OPEN_EMAIL"
	ActionClearAIResults    = "CLEAR_AI_RESULTS"
	ActionShowError         = "SHOW_ERROR"
)

type UIAction struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type Trace struct {
	ProviderUsed   string   `json:"providerUsed"`
	ToolsCalled    []string `json:"toolsCalled"`
	CandidateCount int      `json:"candidateCount"`
	FinalCount     int      `json:"finalCount"`
}

// ChatResponse is the reconciled answer of one run. Every result is a record
// from that run's candidate registry.
type ChatResponse struct {
	AssistantMessage string             `json:"assistantMessage"`
	UIActions        []UIAction         `json:"uiActions"`
	Results          []mailbox.ListItem `json:"results"`
	Trace            Trace              `json:"trace"`
}

// BuildResponse reconciles model output against what the tools actually
// returned during the run.
func BuildResponse(provider string, out AgentOutput, run *RunContext) *ChatResponse {
	registry := run.Registry

	var ids []string
	if claimed, ok := out.ResultIDs.([]interface{}); ok {
		for _, raw := range claimed {
			id, ok := raw.(string)
			if ok && registry.Has(id) {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		ids = registry.Recent(FallbackResultLimit)
	}

	results := make([]mailbox.ListItem, 0, len(ids))
	for _, id := range ids {
		if record, ok := registry.Get(id); ok {
			results = append(results, record)
		}
	}

	actions := normalizeActions(out.UIActions)

	hasShowResults := false
	for _, a := range actions {
		if a.Type == ActionShowSearchResults {
			hasShowResults = true
			break
		}
	}
	if !hasShowResults && len(results) > 0 {
		resultIDs := make([]string, len(ids))
		copy(resultIDs, ids)
		actions = append(actions, UIAction{
			Type:    ActionShowSearchResults,
			Payload: map[string]interface{}{"result_ids": resultIDs},
		})
	}
	if len(actions) == 0 && len(results) == 0 {
		actions = append(actions, UIAction{Type: ActionClearAIResults, Payload: map[string]interface{}{}})
	}

	message := ""
	if s, ok := out.AssistantMessage.(string); ok {
		message = strings.TrimSpace(s)
	}
	if message == "" {
		if len(results) > 0 {
			message = ClosestMatchMessage
		} else {
			message = GreetingMessage
		}
	}

	tools := make([]string, len(run.Log.ToolsCalled))
	copy(tools, run.Log.ToolsCalled)

	return &ChatResponse{
		AssistantMessage: message,
		UIActions:        actions,
		Results:          results,
		Trace: Trace{
			ProviderUsed:   provider,
			ToolsCalled:    tools,
			CandidateCount: registry.Len(),
			FinalCount:     len(results),
		},
	}
}

func normalizeActions(raw interface{}) []UIAction {
	list, ok := raw.([]interface{})
	if !ok {
		return []UIAction{}
	}
	actions := make([]UIAction, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		actionType := ""
		if t, exists := obj["type"]; exists && t != nil {
			actionType = strings.TrimSpace(fmt.Sprint(t))
		}
		if actionType == "" {
			continue
		}
		payload, ok := obj["payload"].(map[string]interface{})
		if !ok {
			payload = map[string]interface{}{}
		}
		actions = append(actions, UIAction{Type: actionType, Payload: payload})
	}
	return actions
}
