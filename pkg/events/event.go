package events

import "time"

// TypeAIChatCompleted is published once per answered chat turn.
const TypeAIChatCompleted = "ai_chat_completed"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the subject suffix for this event (e.g. "ai_chat_completed").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewAIChatCompleted wraps a chat trace summary.
func NewAIChatCompleted(data map[string]interface{}, occurredAt time.Time) BaseEvent {
	return BaseEvent{Type: TypeAIChatCompleted, Data: data, OccurredAt: occurredAt}
}
