package contract

import (
	"context"
	"time"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AIConversationRepository interface {
	Create(ctx context.Context, conversation *entity.AIConversation) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AIConversation, error)
	TouchLastMessageAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

type AIConversationMessageRepository interface {
	Create(ctx context.Context, message *entity.AIConversationMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AIConversationMessage, error)
}
