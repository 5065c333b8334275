package service

import (
	"context"
	"encoding/json"

	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher forwards domain events to the external bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains ai.chat.completed from the in-process bus and
// forwards each summary to NATS.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	events     EventPublisher
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, eventPublisher EventPublisher, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		events:     eventPublisher,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: a trace summary is not worth redelivering.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.ChatCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Warn("CONSUMER", "Dropping malformed chat completed message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if cs.events == nil {
		return
	}

	event := events.NewAIChatCompleted(map[string]interface{}{
		"conversation_id": payload.ConversationID.String(),
		"user_id":         payload.UserID.String(),
		"mailbox":         payload.Mailbox,
		"model":           payload.Model,
		"provider_used":   payload.ProviderUsed,
		"tools_called":    payload.ToolsCalled,
		"candidate_count": payload.CandidateCount,
		"final_count":     payload.FinalCount,
	}, payload.OccurredAt)

	if err := cs.events.Publish(ctx, event); err != nil {
		cs.logger.Error("CONSUMER", "Failed to forward chat completed event", map[string]interface{}{
			"conversation_id": payload.ConversationID,
			"error":           err.Error(),
		})
	}
}
