package chatstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-mail-workspace-be/internal/constant"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/mailbox"
	"ai-mail-workspace-be/pkg/searchagent"

	"github.com/go-playground/validator/v10"
)

const (
	deltaWordCount = 4

	msgInvalidPayload = "Invalid chat request payload"
	msgEmptyMessage   = "Message cannot be empty"
	msgChatFailed     = "AI chat failed"
)

type RequestContext struct {
	ActiveMailbox  string                 `json:"activeMailbox" validate:"omitempty,oneof=inbox sent"`
	SelectedMailID *string                `json:"selectedMailId"`
	CurrentFilters map[string]interface{} `json:"currentFilters"`
	Timezone       *string                `json:"timezone"`
}

// Request is the payload of a chat_request client event.
type Request struct {
	ChatID         string         `json:"chatId" validate:"required"`
	Message        *string        `json:"message" validate:"required"`
	Model          string         `json:"model" validate:"omitempty,oneof=auto gemini groq"`
	ConversationID *string        `json:"conversationId"`
	Context        RequestContext `json:"context"`
}

// Input is one validated chat turn handed to the Runner.
type Input struct {
	Message        string
	Model          string
	ConversationID *string
	UI             searchagent.UIContext
}

// Output is the Runner's answer: the agent response plus the conversation
// it was recorded in.
type Output struct {
	ConversationID string `json:"conversationId,omitempty"`
	searchagent.ChatResponse
}

// Runner executes one chat turn for a user.
type Runner interface {
	Chat(ctx context.Context, userID string, in Input) (*Output, error)
}

// Session streams chat runs for a single connection.
type Session struct {
	runner   Runner
	sender   Sender
	validate *validator.Validate
	log      logger.ILogger
	now      func() time.Time
}

func NewSession(runner Runner, sender Sender, log logger.ILogger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		runner:   runner,
		sender:   sender,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// ToInput normalizes a validated request.
func (r Request) ToInput() Input {
	model := r.Model
	if model == "" {
		model = constant.ModelSelectorAuto
	}
	active := r.Context.ActiveMailbox
	if active == "" {
		active = mailbox.Inbox
	}
	filters := r.Context.CurrentFilters
	if filters == nil {
		filters = map[string]interface{}{}
	}
	message := ""
	if r.Message != nil {
		message = strings.TrimSpace(*r.Message)
	}
	return Input{
		Message:        message,
		Model:          model,
		ConversationID: r.ConversationID,
		UI: searchagent.UIContext{
			ActiveMailbox:  active,
			SelectedMailID: r.Context.SelectedMailID,
			CurrentFilters: filters,
			Timezone:       r.Context.Timezone,
		},
	}
}

// HandleChatRequest runs one chat request and streams its lifecycle:
// chat_start, chat_delta per word group, chat_action per UI action, then
// chat_completed. Any failure ends the stream with a best-effort chat_error.
func (s *Session) HandleChatRequest(ctx context.Context, userID string, payload json.RawMessage) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.log.Warn("CHAT_STREAM", "Undecodable chat request", map[string]interface{}{"error": err.Error()})
		s.emitError(ctx, nil, msgInvalidPayload)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.log.Warn("CHAT_STREAM", "Invalid chat request", map[string]interface{}{"error": err.Error()})
		s.emitError(ctx, nil, msgInvalidPayload)
		return
	}

	chatID := req.ChatID
	in := req.ToInput()
	if in.Message == "" {
		s.emitError(ctx, &chatID, msgEmptyMessage)
		return
	}

	if err := s.stream(ctx, userID, chatID, in); err != nil {
		if ctx.Err() != nil {
			s.log.Info("CHAT_STREAM", "Chat request abandoned by client", map[string]interface{}{"chat_id": chatID})
			return
		}
		s.log.Error("CHAT_STREAM", "Chat request failed", map[string]interface{}{
			"chat_id": chatID,
			"user_id": userID,
			"error":   err.Error(),
		})
		s.emitError(ctx, &chatID, msgChatFailed)
	}
}

func (s *Session) stream(ctx context.Context, userID, chatID string, in Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chat run panicked: %v", r)
		}
	}()

	start := Event{
		Type:      EventChatStart,
		EventID:   chatID + "-start",
		Timestamp: isoTimestamp(s.now()),
		Payload:   startPayload{ChatID: chatID, UserMessage: in.Message, Model: in.Model},
	}
	if err := s.sender.Send(ctx, start); err != nil {
		return fmt.Errorf("emit chat_start: %w", err)
	}

	out, err := s.runner.Chat(ctx, userID, in)
	if err != nil {
		return err
	}
	if out == nil {
		return errors.New("runner returned no output")
	}

	for _, chunk := range ChunkMessage(out.AssistantMessage) {
		now := s.now()
		delta := Event{
			Type:      EventChatDelta,
			EventID:   fmt.Sprintf("%s-delta-%s", chatID, unixSeconds(now)),
			Timestamp: isoTimestamp(now),
			Payload:   deltaPayload{ChatID: chatID, Delta: chunk},
		}
		if err := s.sender.Send(ctx, delta); err != nil {
			return fmt.Errorf("emit chat_delta: %w", err)
		}
	}

	results := out.Results
	if results == nil {
		results = []mailbox.ListItem{}
	}
	for _, action := range out.UIActions {
		now := s.now()
		ev := Event{
			Type:      EventChatAction,
			EventID:   fmt.Sprintf("%s-action-%s", chatID, unixSeconds(now)),
			Timestamp: isoTimestamp(now),
			Payload:   actionPayload{ChatID: chatID, Action: action, Results: results},
		}
		if err := s.sender.Send(ctx, ev); err != nil {
			return fmt.Errorf("emit chat_action: %w", err)
		}
	}

	completed := Event{
		Type:      EventChatCompleted,
		EventID:   chatID + "-completed",
		Timestamp: isoTimestamp(s.now()),
		Payload:   completedPayload{ChatID: chatID, Output: out},
	}
	if err := s.sender.Send(ctx, completed); err != nil {
		return fmt.Errorf("emit chat_completed: %w", err)
	}
	return nil
}

// emitError never fails; a broken connection must not take the read loop down.
func (s *Session) emitError(ctx context.Context, chatID *string, message string) {
	prefix := "chat"
	if chatID != nil && *chatID != "" {
		prefix = *chatID
	}
	ev := Event{
		Type:      EventChatError,
		EventID:   prefix + "-error",
		Timestamp: isoTimestamp(s.now()),
		Payload:   errorPayload{ChatID: chatID, Message: message},
	}
	if err := s.sender.Send(ctx, ev); err != nil {
		s.log.Warn("CHAT_STREAM", "Failed to emit chat_error", map[string]interface{}{"error": err.Error()})
	}
}

// ChunkMessage splits an assistant message into groups of four words. Every
// group but the last keeps a trailing space so a renderer can tell more text
// follows. An empty message yields one empty chunk.
func ChunkMessage(message string) []string {
	if message == "" {
		return []string{""}
	}
	words := strings.Fields(message)
	if len(words) == 0 {
		return []string{message}
	}

	chunks := make([]string, 0, (len(words)+deltaWordCount-1)/deltaWordCount)
	for i := 0; i < len(words); i += deltaWordCount {
		end := i + deltaWordCount
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
