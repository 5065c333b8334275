package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AIConversation struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID `gorm:"type:uuid;not null;index"`
	Mailbox       string    `gorm:"type:text;not null;index"`
	Title         *string   `gorm:"type:text"`
	IsArchived    bool      `gorm:"not null;default:false"`
	LastMessageAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (AIConversation) TableName() string {
	return "ai_conversations"
}

type AIConversationMessage struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role           string         `gorm:"type:text;not null"`
	Content        string         `gorm:"type:text;not null"`
	UIActionsJSON  datatypes.JSON `gorm:"column:ui_actions_json;type:jsonb"`
	TraceJSON      datatypes.JSON `gorm:"column:trace_json;type:jsonb"`
	TokenCount     *int
	CreatedAt      time.Time `gorm:"autoCreateTime;index"`
}

func (AIConversationMessage) TableName() string {
	return "ai_conversation_messages"
}
