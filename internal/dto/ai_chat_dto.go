package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChatCompletedMessage is published on the in-process bus after every
// successful chat turn.
type ChatCompletedMessage struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Mailbox        string    `json:"mailbox"`
	Model          string    `json:"model"`
	ProviderUsed   string    `json:"provider_used"`
	ToolsCalled    []string  `json:"tools_called"`
	CandidateCount int       `json:"candidate_count"`
	FinalCount     int       `json:"final_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type ConversationMessageResponse struct {
	Id         uuid.UUID       `json:"id"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	UIActions  json.RawMessage `json:"ui_actions,omitempty"`
	Trace      json.RawMessage `json:"trace,omitempty"`
	TokenCount *int            `json:"token_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ConversationMessagesResponse struct {
	ConversationID uuid.UUID                     `json:"conversation_id"`
	Messages       []ConversationMessageResponse `json:"messages"`
}
