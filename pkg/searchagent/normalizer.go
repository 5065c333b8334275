package searchagent

import (
	"encoding/json"
	"strings"

	"ai-mail-workspace-be/pkg/llm"
)

const (
	GreetingMessage     = "Hi! I can help search and filter your mailbox. Tell me what to look for."
	UnparseableMessage  = "I can help search and filter your mailbox. Tell me what to look for."
	ClosestMatchMessage = "Here are the closest emails matching your request."
)

// AgentOutput is the structured answer the model is instructed to return.
// Fields keep the raw JSON so reconciliation can tolerate wrong types.
type AgentOutput struct {
	AssistantMessage interface{} `json:"assistant_message"`
	UIActions        interface{} `json:"ui_actions"`
	ResultIDs        interface{} `json:"result_ids"`
}

func defaultOutput(message string) AgentOutput {
	return AgentOutput{
		AssistantMessage: message,
		UIActions: []interface{}{
			map[string]interface{}{"type": ActionClearAIResults, "payload": map[string]interface{}{}},
		},
		ResultIDs: []interface{}{},
	}
}

// ExtractText returns the model's final text: the aggregated output when
// present, else the newest turn with non-empty content.
func ExtractText(result *llm.RunResult) string {
	if result == nil {
		return ""
	}
	if text := normalizeContent(result.Output); text != "" {
		return text
	}
	for i := len(result.Turns) - 1; i >= 0; i-- {
		if text := normalizeContent(result.Turns[i].Content); text != "" {
			return text
		}
	}
	return ""
}

func normalizeContent(content interface{}) string {
	switch c := content.(type) {
	case string:
		return strings.TrimSpace(c)
	case []interface{}:
		var parts []string
		for _, block := range c {
			switch b := block.(type) {
			case string:
				if s := strings.TrimSpace(b); s != "" {
					parts = append(parts, s)
				}
			case map[string]interface{}:
				if s, ok := b["text"].(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	case []string:
		blocks := make([]interface{}, len(c))
		for i, s := range c {
			blocks[i] = s
		}
		return normalizeContent(blocks)
	case map[string]interface{}:
		if s, ok := c["text"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// ParseStructured turns model text into an AgentOutput. It never fails:
// empty text yields the greeting default, unparseable text the help default.
func ParseStructured(text string) AgentOutput {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return defaultOutput(GreetingMessage)
	}

	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	if out, ok := decodeObject(strings.TrimSpace(cleaned)); ok {
		return out
	}

	// Second stage: outermost brace block of the original text.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if out, ok := decodeObject(text[start : end+1]); ok {
			return out
		}
	}

	return defaultOutput(UnparseableMessage)
}

func decodeObject(s string) (AgentOutput, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return AgentOutput{}, false
	}
	return AgentOutput{
		AssistantMessage: obj["assistant_message"],
		UIActions:        obj["ui_actions"],
		ResultIDs:        obj["result_ids"],
	}, true
}
