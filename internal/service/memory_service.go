package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-mail-workspace-be/internal/constant"
	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/repository/specification"
	"ai-mail-workspace-be/internal/repository/unitofwork"
	"ai-mail-workspace-be/pkg/llm"
	"ai-mail-workspace-be/pkg/mailbox"
	"ai-mail-workspace-be/pkg/searchagent"

	"github.com/google/uuid"
)

const (
	RoleUser      = constant.ChatMessageRoleUser
	RoleAssistant = constant.ChatMessageRoleAssistant

	DefaultMemoryLimit = 12
	maxHistoryListed   = 200

	msgConversationNotFound = "Conversation not found"
	msgConversationArchived = "Conversation is archived"
)

type AppendMessageInput struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Role           string
	Content        string
	UIActions      []searchagent.UIAction
	Trace          *searchagent.Trace
}

type IMemoryService interface {
	ResolveConversation(ctx context.Context, userID uuid.UUID, mailboxName string, conversationID *string) (*entity.AIConversation, error)
	AppendMessage(ctx context.Context, in AppendMessageInput) (*entity.AIConversationMessage, error)
	FetchRecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]*entity.AIConversationMessage, error)
	ListConversationMessages(ctx context.Context, userID uuid.UUID, conversationID string) ([]*entity.AIConversationMessage, error)
}

type memoryService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	now        func() time.Time
}

func NewMemoryService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IMemoryService {
	return &memoryService{
		uowFactory: uowFactory,
		logger:     log,
		now:        time.Now,
	}
}

// ResolveConversation returns the conversation a chat turn belongs to. An
// explicit id must be owned by the user and still active; without one the
// latest active conversation of the mailbox is reused or a new one created.
// Ids that do not parse are treated as absent.
func (s *memoryService) ResolveConversation(ctx context.Context, userID uuid.UUID, mailboxName string, conversationID *string) (*entity.AIConversation, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	box := mailbox.NormalizeMailbox(mailboxName)

	if id, ok := parseOptionalUUID(conversationID); ok {
		conv, err := s.ownedConversation(ctx, uow, userID, id)
		if err != nil {
			return nil, err
		}
		if conv.IsArchived {
			return nil, serverutils.ErrBadRequest(msgConversationArchived)
		}
		return conv, nil
	}

	latest, err := uow.ConversationRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: userID},
		specification.ByMailbox{Mailbox: box},
		specification.NotArchived{},
		specification.OrderBy{Field: "last_message_at", Desc: true},
	)
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to resolve conversation", err)
	}
	if latest != nil {
		return latest, nil
	}

	now := s.now().UTC()
	title := strings.ToUpper(box[:1]) + box[1:] + " chat"
	conv := &entity.AIConversation{
		Id:            uuid.New(),
		UserId:        userID,
		Mailbox:       box,
		Title:         &title,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := uow.ConversationRepository().Create(ctx, conv); err != nil {
		return nil, serverutils.ErrInternal("Failed to resolve conversation", err)
	}

	s.logger.Info("MEMORY", "Conversation created", map[string]interface{}{
		"conversation_id": conv.Id,
		"user_id":         userID,
		"mailbox":         box,
	})
	return conv, nil
}

func (s *memoryService) AppendMessage(ctx context.Context, in AppendMessageInput) (*entity.AIConversationMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedConversation(ctx, uow, in.UserID, in.ConversationID); err != nil {
		return nil, err
	}

	msg := &entity.AIConversationMessage{
		Id:             uuid.New(),
		ConversationId: in.ConversationID,
		UserId:         in.UserID,
		Role:           in.Role,
		Content:        in.Content,
		CreatedAt:      s.now().UTC(),
	}
	tokens := EstimateTokenCount(in.Content)
	msg.TokenCount = &tokens

	if in.UIActions != nil {
		raw, err := json.Marshal(map[string]interface{}{"items": in.UIActions})
		if err != nil {
			return nil, fmt.Errorf("encode ui actions: %w", err)
		}
		msg.UIActions = raw
	}
	if in.Trace != nil {
		raw, err := json.Marshal(in.Trace)
		if err != nil {
			return nil, fmt.Errorf("encode trace: %w", err)
		}
		msg.Trace = raw
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.ErrInternal("Failed to persist conversation message", err)
	}
	defer uow.Rollback()

	if err := uow.ConversationMessageRepository().Create(ctx, msg); err != nil {
		return nil, serverutils.ErrInternal("Failed to persist conversation message", err)
	}
	if err := uow.ConversationRepository().TouchLastMessageAt(ctx, in.ConversationID, msg.CreatedAt); err != nil {
		return nil, serverutils.ErrInternal("Failed to persist conversation message", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, serverutils.ErrInternal("Failed to persist conversation message", err)
	}
	return msg, nil
}

// FetchRecentMessages returns up to limit of the newest messages, oldest first.
func (s *memoryService) FetchRecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]*entity.AIConversationMessage, error) {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	msgs, err := uow.ConversationMessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationID},
		specification.UserOwnedBy{UserID: userID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to fetch conversation history", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *memoryService) ListConversationMessages(ctx context.Context, userID uuid.UUID, conversationID string) ([]*entity.AIConversationMessage, error) {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, serverutils.ErrNotFound(msgConversationNotFound)
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedConversation(ctx, uow, userID, id); err != nil {
		return nil, err
	}
	return s.FetchRecentMessages(ctx, id, userID, maxHistoryListed)
}

func (s *memoryService) ownedConversation(ctx context.Context, uow unitofwork.UnitOfWork, userID, conversationID uuid.UUID) (*entity.AIConversation, error) {
	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationID})
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to load conversation", err)
	}
	if conv == nil || conv.UserId != userID {
		return nil, serverutils.ErrNotFound(msgConversationNotFound)
	}
	return conv, nil
}

// BuildHistoryContext turns stored messages into model history turns.
func BuildHistoryContext(msgs []*entity.AIConversationMessage) []llm.MemoryMessage {
	history := make([]llm.MemoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, llm.MemoryMessage{Role: m.Role, Content: m.Content})
	}
	return history
}

// EstimateTokenCount is a whitespace word count, never below one.
func EstimateTokenCount(content string) int {
	if n := len(strings.Fields(content)); n > 0 {
		return n
	}
	return 1
}

func parseOptionalUUID(raw *string) (uuid.UUID, bool) {
	if raw == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
