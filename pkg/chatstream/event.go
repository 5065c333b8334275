package chatstream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ai-mail-workspace-be/pkg/mailbox"
	"ai-mail-workspace-be/pkg/searchagent"
)

const (
	EventChatStart     = "chat_start"
	EventChatDelta     = "chat_delta"
	EventChatAction    = "chat_action"
	EventChatCompleted = "chat_completed"
	EventChatError     = "chat_error"

	EventSystemReady = "system.ready"
	EventMailUpdated = "mail_updated"

	// ClientChatRequest is the only client event type acted upon.
	ClientChatRequest = "chat_request"
)

// Event is the envelope of every frame pushed to a websocket client.
type Event struct {
	Type      string      `json:"type"`
	EventID   string      `json:"eventId"`
	Timestamp string      `json:"ts"`
	Payload   interface{} `json:"payload"`
}

// Sender delivers one event to one connection.
type Sender interface {
	Send(ctx context.Context, event Event) error
}

type SenderFunc func(ctx context.Context, event Event) error

func (f SenderFunc) Send(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type startPayload struct {
	ChatID      string `json:"chatId"`
	UserMessage string `json:"userMessage"`
	Model       string `json:"model"`
}

type deltaPayload struct {
	ChatID string `json:"chatId"`
	Delta  string `json:"delta"`
}

type actionPayload struct {
	ChatID  string               `json:"chatId"`
	Action  searchagent.UIAction `json:"action"`
	Results []mailbox.ListItem   `json:"results"`
}

type completedPayload struct {
	ChatID string `json:"chatId"`
	*Output
}

type errorPayload struct {
	ChatID  *string `json:"chatId"`
	Message string  `json:"message"`
}

// ReadyEvent greets a freshly accepted connection.
func ReadyEvent() Event {
	return Event{
		Type:      EventSystemReady,
		EventID:   "ws-ready",
		Timestamp: "",
		Payload:   map[string]interface{}{"ok": true},
	}
}

// InvalidClientEvent answers a frame that is not a well-formed client event.
func InvalidClientEvent() Event {
	return Event{
		Type:      EventChatError,
		EventID:   "chat-invalid-event",
		Timestamp: "",
		Payload:   errorPayload{Message: "Invalid websocket chat event"},
	}
}

// MailUpdatedEvent tells a user's other sessions that a message changed.
func MailUpdatedEvent(now time.Time, state mailbox.ReadState) Event {
	return Event{
		Type:      EventMailUpdated,
		EventID:   fmt.Sprintf("mail-%s-%d", state.ID, now.UnixNano()),
		Timestamp: isoTimestamp(now),
		Payload:   state,
	}
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// unixSeconds renders t as fractional epoch seconds for event ids.
func unixSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}
