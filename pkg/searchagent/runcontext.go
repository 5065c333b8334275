package searchagent

import "ai-mail-workspace-be/pkg/llm"

// UIContext is the client-side view state sent with a chat turn.
type UIContext struct {
	ActiveMailbox  string                 `json:"activeMailbox"`
	SelectedMailID *string                `json:"selectedMailId"`
	CurrentFilters map[string]interface{} `json:"currentFilters"`
	Timezone       *string                `json:"timezone"`
}

// ChatTurnContext is everything one search run needs about the caller.
type ChatTurnContext struct {
	UserID        string
	Message       string
	Memory        []llm.MemoryMessage
	UI            UIContext
	ModelSelector string
}

// ToolLog records tool activity for the response trace.
type ToolLog struct {
	ToolsCalled []string
	QueriesUsed []string
}

// RunContext is the mutable state of a single orchestration run. It is
// created by the agent, handed to the tools by pointer, and discarded with
// the run.
type RunContext struct {
	Registry       *CandidateRegistry
	Log            ToolLog
	SelectedDetail map[string]interface{}
}

func NewRunContext() *RunContext {
	return &RunContext{
		Registry: NewCandidateRegistry(),
		Log: ToolLog{
			ToolsCalled: []string{},
			QueriesUsed: []string{},
		},
	}
}
