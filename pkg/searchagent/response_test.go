package searchagent

import (
	"fmt"
	"testing"

	"ai-mail-workspace-be/pkg/mailbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWith(ids ...string) *RunContext {
	run := NewRunContext()
	for _, id := range ids {
		run.Registry.Register(id, mailbox.ListItem{ID: id, Subject: "subject " + id})
	}
	return run
}

func TestBuildResponseFiltersHallucinatedIDs(t *testing.T) {
	run := runWith("msg_1", "msg_2", "msg_3")
	out := AgentOutput{
		AssistantMessage: "Found them",
		ResultIDs:        []interface{}{"msg_999"},
	}

	resp := BuildResponse("gemini", out, run)

	require.Len(t, resp.Results, 3)
	for i, r := range resp.Results {
		assert.Equal(t, fmt.Sprintf("msg_%d", i+1), r.ID)
	}
	require.Len(t, resp.UIActions, 1)
	assert.Equal(t, ActionShowSearchResults, resp.UIActions[0].Type)
	assert.Equal(t, []string{"msg_1", "msg_2", "msg_3"}, resp.UIActions[0].Payload["result_ids"])
	assert.Equal(t, "Found them", resp.AssistantMessage)
}

func TestBuildResponseFallbackIsCappedAt15(t *testing.T) {
	ids := make([]string, 0, 22)
	for i := 0; i < 22; i++ {
		ids = append(ids, fmt.Sprintf("m%02d", i))
	}
	resp := BuildResponse("groq", AgentOutput{}, runWith(ids...))

	require.Len(t, resp.Results, FallbackResultLimit)
	assert.Equal(t, "m00", resp.Results[0].ID)
	assert.Equal(t, "m14", resp.Results[14].ID)
	assert.Equal(t, ClosestMatchMessage, resp.AssistantMessage)
	assert.Equal(t, Trace{ProviderUsed: "groq", ToolsCalled: []string{}, CandidateCount: 22, FinalCount: 15}, resp.Trace)
}

func TestBuildResponseKeepsCitedOrder(t *testing.T) {
	run := runWith("a", "b", "c")
	resp := BuildResponse("gemini", AgentOutput{ResultIDs: []interface{}{"c", 7, "a", "zz"}}, run)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "c", resp.Results[0].ID)
	assert.Equal(t, "a", resp.Results[1].ID)
}

func TestBuildResponseActions(t *testing.T) {
	tests := []struct {
		name      string
		registry  []string
		actions   interface{}
		wantTypes []string
	}{
		{
			name:      "smalltalk gets clear action",
			registry:  nil,
			actions:   nil,
			wantTypes: []string{ActionClearAIResults},
		},
		{
			name:      "existing show results is not duplicated",
			registry:  []string{"a"},
			actions:   []interface{}{map[string]interface{}{"type": ActionShowSearchResults, "payload": map[string]interface{}{"result_ids": []interface{}{"a"}}}},
			wantTypes: []string{ActionShowSearchResults},
		},
		{
			name:     "show results appended after model actions",
			registry: []string{"a"},
			actions: []interface{}{
				map[string]interface{}{"type": ActionApplyFilters, "payload": map[string]interface{}{"unread": true}},
			},
			wantTypes: []string{ActionApplyFilters, ActionShowSearchResults},
		},
		{
			name:     "invalid actions dropped",
			registry: nil,
			actions: []interface{}{
				"OPEN_EMAIL",
				map[string]interface{}{"type": "  "},
				map[string]interface{}{"payload": map[string]interface{}{}},
				map[string]interface{}{"type": ActionOpenEmail, "payload": "m1"},
			},
			wantTypes: []string{ActionOpenEmail},
		},
		{
			name:      "non-list actions ignored",
			registry:  nil,
			actions:   map[string]interface{}{"type": ActionOpenEmail},
			wantTypes: []string{ActionClearAIResults},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := BuildResponse("gemini", AgentOutput{UIActions: tt.actions}, runWith(tt.registry...))
			types := make([]string, 0, len(resp.UIActions))
			for _, a := range resp.UIActions {
				types = append(types, a.Type)
				assert.NotNil(t, a.Payload)
			}
			assert.Equal(t, tt.wantTypes, types)
		})
	}
}

func TestBuildResponseCoercesPayload(t *testing.T) {
	resp := BuildResponse("gemini", AgentOutput{
		UIActions: []interface{}{map[string]interface{}{"type": ActionOpenEmail, "payload": []interface{}{"x"}}},
	}, runWith())

	require.Len(t, resp.UIActions, 1)
	assert.Equal(t, map[string]interface{}{}, resp.UIActions[0].Payload)
	assert.Empty(t, resp.Results)
	assert.Equal(t, GreetingMessage, resp.AssistantMessage)
}

func TestBuildResponseMessageTrimmed(t *testing.T) {
	resp := BuildResponse("gemini", AgentOutput{AssistantMessage: "  hello there \n"}, runWith())
	assert.Equal(t, "hello there", resp.AssistantMessage)

	resp = BuildResponse("gemini", AgentOutput{AssistantMessage: 12}, runWith())
	assert.Equal(t, GreetingMessage, resp.AssistantMessage)
}
