package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/repository/memory"
	"ai-mail-workspace-be/internal/repository/specification"
	"ai-mail-workspace-be/internal/repository/unitofwork"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// refreshSkew is how close to expiry a stored token is refreshed.
const refreshSkew = 60 * time.Second

// ITokenService resolves a usable Google access token for an app user.
type ITokenService interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

type tokenService struct {
	uowFactory unitofwork.RepositoryFactory
	googleConf *oauth2.Config
	cache      *memory.TokenCache
	logger     logger.ILogger
	now        func() time.Time
}

func NewTokenService(uowFactory unitofwork.RepositoryFactory, googleConf *oauth2.Config, cache *memory.TokenCache, log logger.ILogger) ITokenService {
	return &tokenService{
		uowFactory: uowFactory,
		googleConf: googleConf,
		cache:      cache,
		logger:     log,
		now:        time.Now,
	}
}

func (s *tokenService) AccessToken(ctx context.Context, userID string) (string, error) {
	if tok, ok := s.cache.Get(userID); ok && s.fresh(tok.Expiry) {
		return tok.AccessToken, nil
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", serverutils.ErrBadRequest("Invalid user id")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	account, err := uow.OauthAccountRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: uid},
		specification.ByProvider{Provider: entity.OauthProviderGoogle},
	)
	if err != nil {
		return "", serverutils.ErrInternal("Failed to load OAuth account", err)
	}
	if account == nil {
		return "", serverutils.ErrNotFound("Google account not connected")
	}

	if account.ExpiresAt != nil && !s.fresh(*account.ExpiresAt) {
		if err := s.refresh(ctx, uow, account); err != nil {
			return "", err
		}
	}

	if account.AccessToken == "" {
		return "", serverutils.ErrUnauthorized("Missing Google access token")
	}

	tok := &oauth2.Token{AccessToken: account.AccessToken}
	if account.ExpiresAt != nil {
		tok.Expiry = *account.ExpiresAt
	}
	s.cache.Save(userID, tok)
	return tok.AccessToken, nil
}

func (s *tokenService) fresh(expiry time.Time) bool {
	return expiry.IsZero() || expiry.After(s.now().Add(refreshSkew))
}

func (s *tokenService) refresh(ctx context.Context, uow unitofwork.UnitOfWork, account *entity.OauthAccount) error {
	if account.RefreshToken == nil || *account.RefreshToken == "" {
		return serverutils.ErrUnauthorized("Google refresh token unavailable; re-authenticate")
	}

	src := s.googleConf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: *account.RefreshToken,
		Expiry:       s.now().Add(-time.Minute),
	})
	tok, err := src.Token()
	if err != nil {
		s.logger.Warn("TOKEN", "Google token refresh failed", map[string]interface{}{
			"user_id": account.UserId,
			"error":   err.Error(),
		})
		return refreshError(err)
	}
	if tok.AccessToken == "" {
		return serverutils.ErrInternal("Invalid Google refresh response", nil)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(defaultTokenLifetime)
	}
	account.AccessToken = tok.AccessToken
	account.ExpiresAt = &expiresAt
	if tok.TokenType != "" {
		tokenType := tok.TokenType
		account.TokenType = &tokenType
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		account.Scope = &scope
	}
	if tok.RefreshToken != "" {
		rt := tok.RefreshToken
		account.RefreshToken = &rt
	}
	now := s.now()
	account.UpdatedAt = &now

	if err := uow.OauthAccountRepository().Update(ctx, account); err != nil {
		return serverutils.ErrInternal("Failed to refresh Google token", err)
	}

	s.logger.Info("TOKEN", "Google access token refreshed", map[string]interface{}{
		"user_id":    account.UserId,
		"expires_at": expiresAt,
	})
	return nil
}

func refreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := strings.TrimSpace(retrieveErr.ErrorDescription)
		if msg == "" {
			msg = strings.TrimSpace(retrieveErr.ErrorCode)
		}
		if msg == "" {
			msg = "Failed to refresh Google token"
		}
		return &serverutils.AppError{Code: fiber.StatusUnauthorized, Message: msg, Err: err}
	}
	return serverutils.ErrInternal("Failed to refresh Google token", err)
}
