package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/pkg/chatstream"
	"ai-mail-workspace-be/pkg/searchagent"

	"github.com/google/uuid"
)

// Searcher runs one agent turn.
type Searcher interface {
	Search(ctx context.Context, turn searchagent.ChatTurnContext) (*searchagent.ChatResponse, error)
}

// IAIChatService runs chat turns for both the REST endpoint and the
// websocket stream.
type IAIChatService interface {
	Chat(ctx context.Context, userID string, in chatstream.Input) (*chatstream.Output, error)
	GetConversationMessages(ctx context.Context, userID, conversationID string) (*dto.ConversationMessagesResponse, error)
}

type aiChatService struct {
	searcher    Searcher
	memory      IMemoryService
	publisher   IPublisherService
	memoryLimit int
	logger      logger.ILogger
	now         func() time.Time
}

func NewAIChatService(searcher Searcher, memory IMemoryService, publisher IPublisherService, memoryLimit int, log logger.ILogger) IAIChatService {
	if memoryLimit <= 0 {
		memoryLimit = DefaultMemoryLimit
	}
	return &aiChatService{
		searcher:    searcher,
		memory:      memory,
		publisher:   publisher,
		memoryLimit: memoryLimit,
		logger:      log,
		now:         time.Now,
	}
}

// Chat resolves the conversation, runs the agent with the recent history and
// records both turns once the agent has answered.
func (s *aiChatService) Chat(ctx context.Context, userID string, in chatstream.Input) (*chatstream.Output, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, serverutils.ErrUnauthorized("Unauthorized")
	}

	conv, err := s.memory.ResolveConversation(ctx, uid, in.UI.ActiveMailbox, in.ConversationID)
	if err != nil {
		return nil, err
	}
	history, err := s.memory.FetchRecentMessages(ctx, conv.Id, uid, s.memoryLimit)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, searchagent.ChatTurnContext{
		UserID:        userID,
		Message:       in.Message,
		Memory:        BuildHistoryContext(history),
		UI:            in.UI,
		ModelSelector: in.Model,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.memory.AppendMessage(ctx, AppendMessageInput{
		ConversationID: conv.Id,
		UserID:         uid,
		Role:           RoleUser,
		Content:        in.Message,
	}); err != nil {
		return nil, err
	}
	trace := resp.Trace
	if _, err := s.memory.AppendMessage(ctx, AppendMessageInput{
		ConversationID: conv.Id,
		UserID:         uid,
		Role:           RoleAssistant,
		Content:        resp.AssistantMessage,
		UIActions:      resp.UIActions,
		Trace:          &trace,
	}); err != nil {
		return nil, err
	}

	s.publishCompleted(ctx, uid, conv.Id, conv.Mailbox, in.Model, resp.Trace)

	return &chatstream.Output{
		ConversationID: conv.Id.String(),
		ChatResponse:   *resp,
	}, nil
}

func (s *aiChatService) publishCompleted(ctx context.Context, userID, conversationID uuid.UUID, mailboxName, model string, trace searchagent.Trace) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.ChatCompletedMessage{
		ConversationID: conversationID,
		UserID:         userID,
		Mailbox:        mailboxName,
		Model:          model,
		ProviderUsed:   trace.ProviderUsed,
		ToolsCalled:    trace.ToolsCalled,
		CandidateCount: trace.CandidateCount,
		FinalCount:     trace.FinalCount,
		OccurredAt:     s.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("AI_CHAT", "Failed to publish chat completed event", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
	}
}

func (s *aiChatService) GetConversationMessages(ctx context.Context, userID, conversationID string) (*dto.ConversationMessagesResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, serverutils.ErrUnauthorized("Unauthorized")
	}
	msgs, err := s.memory.ListConversationMessages(ctx, uid, conversationID)
	if err != nil {
		return nil, err
	}

	res := &dto.ConversationMessagesResponse{
		Messages: make([]dto.ConversationMessageResponse, 0, len(msgs)),
	}
	res.ConversationID, _ = uuid.Parse(conversationID)
	for _, m := range msgs {
		res.Messages = append(res.Messages, dto.ConversationMessageResponse{
			Id:         m.Id,
			Role:       m.Role,
			Content:    m.Content,
			UIActions:  m.UIActions,
			Trace:      m.Trace,
			TokenCount: m.TokenCount,
			CreatedAt:  m.CreatedAt,
		})
	}
	return res, nil
}
