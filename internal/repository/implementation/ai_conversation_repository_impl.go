package implementation

import (
	"context"
	"errors"
	"time"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/mapper"
	"ai-mail-workspace-be/internal/model"
	"ai-mail-workspace-be/internal/repository/contract"
	"ai-mail-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AIConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewAIConversationRepository(db *gorm.DB) contract.AIConversationRepository {
	return &AIConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *AIConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.AIConversation) error {
	m := r.mapper.ConversationToModel(conversation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conversation = *r.mapper.ConversationToEntity(m)
	return nil
}

func (r *AIConversationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AIConversation, error) {
	var m model.AIConversation
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ConversationToEntity(&m), nil
}

func (r *AIConversationRepositoryImpl) TouchLastMessageAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.AIConversation{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}

type AIConversationMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewAIConversationMessageRepository(db *gorm.DB) contract.AIConversationMessageRepository {
	return &AIConversationMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *AIConversationMessageRepositoryImpl) Create(ctx context.Context, message *entity.AIConversationMessage) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *AIConversationMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AIConversationMessage, error) {
	var models []*model.AIConversationMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}
