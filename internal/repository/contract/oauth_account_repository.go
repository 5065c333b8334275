package contract

import (
	"context"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/repository/specification"
)

type OauthAccountRepository interface {
	Create(ctx context.Context, account *entity.OauthAccount) error
	Update(ctx context.Context, account *entity.OauthAccount) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.OauthAccount, error)
}
