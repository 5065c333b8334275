package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AIConversation struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	Mailbox       string
	Title         *string
	IsArchived    bool
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

type AIConversationMessage struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	UserId         uuid.UUID
	Role           string
	Content        string
	UIActions      json.RawMessage
	Trace          json.RawMessage
	TokenCount     *int
	CreatedAt      time.Time
}
