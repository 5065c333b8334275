package implementation

import (
	"context"
	"errors"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/mapper"
	"ai-mail-workspace-be/internal/model"
	"ai-mail-workspace-be/internal/repository/contract"
	"ai-mail-workspace-be/internal/repository/specification"

	"gorm.io/gorm"
)

type OauthAccountRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewOauthAccountRepository(db *gorm.DB) contract.OauthAccountRepository {
	return &OauthAccountRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *OauthAccountRepositoryImpl) Create(ctx context.Context, account *entity.OauthAccount) error {
	m := r.mapper.OauthAccountToModel(account)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*account = *r.mapper.OauthAccountToEntity(m)
	return nil
}

func (r *OauthAccountRepositoryImpl) Update(ctx context.Context, account *entity.OauthAccount) error {
	m := r.mapper.OauthAccountToModel(account)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*account = *r.mapper.OauthAccountToEntity(m)
	return nil
}

func (r *OauthAccountRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.OauthAccount, error) {
	var m model.OauthAccount
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OauthAccountToEntity(&m), nil
}
