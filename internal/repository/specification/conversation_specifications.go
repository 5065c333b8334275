package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByMailbox struct {
	Mailbox string
}

func (s ByMailbox) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("mailbox = ?", s.Mailbox)
}

type NotArchived struct{}

func (s NotArchived) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_archived = ?", false)
}

type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}
