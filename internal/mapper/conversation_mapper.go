package mapper

import (
	"encoding/json"
	"time"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/model"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ConversationToEntity(c *model.AIConversation) *entity.AIConversation {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.AIConversation{
		Id:            c.Id,
		UserId:        c.UserId,
		Mailbox:       c.Mailbox,
		Title:         c.Title,
		IsArchived:    c.IsArchived,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ConversationMapper) ConversationToModel(c *entity.AIConversation) *model.AIConversation {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.AIConversation{
		Id:            c.Id,
		UserId:        c.UserId,
		Mailbox:       c.Mailbox,
		Title:         c.Title,
		IsArchived:    c.IsArchived,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ConversationMapper) MessageToEntity(msg *model.AIConversationMessage) *entity.AIConversationMessage {
	if msg == nil {
		return nil
	}

	return &entity.AIConversationMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		UIActions:      rawOrNil(msg.UIActionsJSON),
		Trace:          rawOrNil(msg.TraceJSON),
		TokenCount:     msg.TokenCount,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *ConversationMapper) MessageToModel(msg *entity.AIConversationMessage) *model.AIConversationMessage {
	if msg == nil {
		return nil
	}

	return &model.AIConversationMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		UIActionsJSON:  jsonOrNil(msg.UIActions),
		TraceJSON:      jsonOrNil(msg.Trace),
		TokenCount:     msg.TokenCount,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *ConversationMapper) MessagesToEntities(msgs []*model.AIConversationMessage) []*entity.AIConversationMessage {
	entities := make([]*entity.AIConversationMessage, len(msgs))
	for i, msg := range msgs {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}

func rawOrNil(j datatypes.JSON) json.RawMessage {
	if len(j) == 0 {
		return nil
	}
	return json.RawMessage(j)
}

func jsonOrNil(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}
