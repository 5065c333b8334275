package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/repository/contract"
	"ai-mail-workspace-be/internal/repository/specification"
	"ai-mail-workspace-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the gorm repositories. It
// understands the specifications the services use.
type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*entity.User
	accounts      map[uuid.UUID]*entity.OauthAccount
	conversations map[uuid.UUID]*entity.AIConversation
	messages      []*entity.AIConversationMessage

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[uuid.UUID]*entity.User{},
		accounts:      map[uuid.UUID]*entity.OauthAccount{},
		conversations: map[uuid.UUID]*entity.AIConversation{},
	}
}

func (s *memStore) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memUnitOfWork{store: s}
}

type memUnitOfWork struct {
	store     *memStore
	committed bool
}

func (u *memUnitOfWork) Begin(context.Context) error { return nil }

func (u *memUnitOfWork) Commit() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.committed = true
	u.store.commits++
	return nil
}

func (u *memUnitOfWork) Rollback() error {
	if u.committed {
		return nil
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.rollbacks++
	return nil
}

func (u *memUnitOfWork) UserRepository() contract.UserRepository { return memUsers{u.store} }

func (u *memUnitOfWork) OauthAccountRepository() contract.OauthAccountRepository {
	return memAccounts{u.store}
}

func (u *memUnitOfWork) ConversationRepository() contract.AIConversationRepository {
	return memConversations{u.store}
}

func (u *memUnitOfWork) ConversationMessageRepository() contract.AIConversationMessageRepository {
	return memMessages{u.store}
}

// row is the subset of columns the specifications filter on.
type row struct {
	id             uuid.UUID
	userID         uuid.UUID
	provider       string
	providerUserID string
	mailbox        string
	archived       bool
	conversationID uuid.UUID
}

func matches(r row, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if r.id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if r.userID != s.UserID {
				return false
			}
		case specification.ByProvider:
			if r.provider != s.Provider {
				return false
			}
		case specification.ByProviderUserID:
			if r.providerUserID != s.ProviderUserID {
				return false
			}
		case specification.ByMailbox:
			if r.mailbox != s.Mailbox {
				return false
			}
		case specification.NotArchived:
			if r.archived {
				return false
			}
		case specification.ByConversationID:
			if r.conversationID != s.ConversationID {
				return false
			}
		}
	}
	return true
}

func orderDesc(specs []specification.Specification) bool {
	for _, spec := range specs {
		if o, ok := spec.(specification.OrderBy); ok {
			return o.Desc
		}
	}
	return false
}

func limitOf(specs []specification.Specification) int {
	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			return p.Limit
		}
	}
	return 0
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *user
	r.s.users[user.Id] = &cp
	return nil
}

func (r memUsers) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

func (r memUsers) FindOne(_ context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if matches(row{id: u.Id}, specs) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUsers) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if matches(row{id: u.Id}, specs) {
			n++
		}
	}
	return n, nil
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(_ context.Context, account *entity.OauthAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *account
	r.s.accounts[account.Id] = &cp
	return nil
}

func (r memAccounts) Update(ctx context.Context, account *entity.OauthAccount) error {
	return r.Create(ctx, account)
}

func (r memAccounts) FindOne(_ context.Context, specs ...specification.Specification) (*entity.OauthAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if matches(row{id: a.Id, userID: a.UserId, provider: a.Provider, providerUserID: a.ProviderUserId}, specs) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

type memConversations struct{ s *memStore }

func (r memConversations) Create(_ context.Context, c *entity.AIConversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.conversations[c.Id] = &cp
	return nil
}

func (r memConversations) FindOne(_ context.Context, specs ...specification.Specification) (*entity.AIConversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found []*entity.AIConversation
	for _, c := range r.s.conversations {
		if matches(row{id: c.Id, userID: c.UserId, mailbox: c.Mailbox, archived: c.IsArchived}, specs) {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	sort.Slice(found, func(i, j int) bool { return found[i].LastMessageAt.After(found[j].LastMessageAt) })
	cp := *found[0]
	return &cp, nil
}

func (r memConversations) TouchLastMessageAt(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.conversations[id]; ok {
		c.LastMessageAt = at
	}
	return nil
}

type memMessages struct{ s *memStore }

func (r memMessages) Create(_ context.Context, m *entity.AIConversationMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *m
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

// FindAll orders by insertion, which the tests keep equal to created_at order.
func (r memMessages) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.AIConversationMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.AIConversationMessage
	for _, m := range r.s.messages {
		if matches(row{id: m.Id, userID: m.UserId, conversationID: m.ConversationId}, specs) {
			cp := *m
			out = append(out, &cp)
		}
	}
	if orderDesc(specs) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if n := limitOf(specs); n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
