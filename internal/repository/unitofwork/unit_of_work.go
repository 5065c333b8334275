package unitofwork

import (
	"context"

	"ai-mail-workspace-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	OauthAccountRepository() contract.OauthAccountRepository
	ConversationRepository() contract.AIConversationRepository
	ConversationMessageRepository() contract.AIConversationMessageRepository
}
