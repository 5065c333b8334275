package service

import (
	"context"
	"strings"

	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/pkg/mailbox"
)

const DefaultMailPageSize = 20

// MailProvider is the mail backend; implemented by the Gmail client.
type MailProvider interface {
	List(ctx context.Context, userID, mailboxName, pageToken string, pageSize int) (*mailbox.ListPage, error)
	Search(ctx context.Context, userID, mailboxName, query string, pageSize int) ([]mailbox.ListItem, error)
	GetDetail(ctx context.Context, userID, messageID string) (*mailbox.Detail, error)
	MarkRead(ctx context.Context, userID, messageID string) (*mailbox.ReadState, error)
	Send(ctx context.Context, userID string, out mailbox.Outgoing) (*mailbox.SendResult, error)
}

// MailNotifier pushes mailbox changes to a user's open sockets.
type MailNotifier interface {
	NotifyMailUpdated(userID string, state mailbox.ReadState)
}

type IMailService interface {
	ListMailbox(ctx context.Context, userID, mailboxName string, req *dto.ListMailRequest) (*mailbox.ListPage, error)
	Search(ctx context.Context, userID, mailboxName, query string, pageSize int) ([]mailbox.ListItem, error)
	GetDetail(ctx context.Context, userID, messageID string) (*mailbox.Detail, error)
	MarkRead(ctx context.Context, userID, messageID string) (*mailbox.ReadState, error)
	Send(ctx context.Context, userID string, req *dto.SendMailRequest) (*mailbox.SendResult, error)
}

type mailService struct {
	provider MailProvider
	notifier MailNotifier
	logger   logger.ILogger
}

func NewMailService(provider MailProvider, notifier MailNotifier, log logger.ILogger) IMailService {
	return &mailService{
		provider: provider,
		notifier: notifier,
		logger:   log,
	}
}

func (s *mailService) ListMailbox(ctx context.Context, userID, mailboxName string, req *dto.ListMailRequest) (*mailbox.ListPage, error) {
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = DefaultMailPageSize
	}
	page, err := s.provider.List(ctx, userID, mailbox.NormalizeMailbox(mailboxName), req.PageToken, pageSize)
	if err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []mailbox.ListItem{}
	}
	return page, nil
}

func (s *mailService) Search(ctx context.Context, userID, mailboxName, query string, pageSize int) ([]mailbox.ListItem, error) {
	return s.provider.Search(ctx, userID, mailbox.NormalizeMailbox(mailboxName), query, pageSize)
}

func (s *mailService) GetDetail(ctx context.Context, userID, messageID string) (*mailbox.Detail, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, serverutils.ErrBadRequest("Message id is required")
	}
	return s.provider.GetDetail(ctx, userID, messageID)
}

// MarkRead clears the unread label and tells the user's other sessions.
func (s *mailService) MarkRead(ctx context.Context, userID, messageID string) (*mailbox.ReadState, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, serverutils.ErrBadRequest("Message id is required")
	}
	state, err := s.provider.MarkRead(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyMailUpdated(userID, *state)
	}
	return state, nil
}

func (s *mailService) Send(ctx context.Context, userID string, req *dto.SendMailRequest) (*mailbox.SendResult, error) {
	result, err := s.provider.Send(ctx, userID, mailbox.Outgoing{
		To:      req.To,
		Cc:      req.Cc,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("MAIL", "Message sent", map[string]interface{}{
		"user_id":    userID,
		"message_id": result.ID,
	})
	return result, nil
}
