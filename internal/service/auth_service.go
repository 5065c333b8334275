package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"ai-mail-workspace-be/internal/config"
	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/repository/memory"
	"ai-mail-workspace-be/internal/repository/specification"
	"ai-mail-workspace-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// defaultTokenLifetime applies when Google omits expires_in.
const defaultTokenLifetime = time.Hour

// GoogleScopes covers sign-in plus reading, labelling and sending mail.
var GoogleScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",
}

type IAuthService interface {
	GoogleStart() (*dto.GoogleStartResponse, error)
	GoogleCallback(ctx context.Context, req *dto.GoogleCallbackRequest) (*dto.GoogleCallbackResponse, error)
	GetCurrentUser(ctx context.Context, userID string) (*dto.AuthUserResponse, error)
	Logout(ctx context.Context, userID string) error
}

type authService struct {
	uowFactory      unitofwork.RepositoryFactory
	googleConf      *oauth2.Config
	jwtSecret       string
	sessionTTL      time.Duration
	tokenCache      *memory.TokenCache
	logger          logger.ILogger
	userinfoOptions []option.ClientOption
	now             func() time.Time
}

// NewGoogleOAuthConfig builds the shared OAuth client used for login and
// token refresh.
func NewGoogleOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       GoogleScopes,
		Endpoint:     google.Endpoint,
	}
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	googleConf *oauth2.Config,
	authCfg config.AuthConfig,
	tokenCache *memory.TokenCache,
	log logger.ILogger,
) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		googleConf: googleConf,
		jwtSecret:  authCfg.JwtSecret,
		sessionTTL: authCfg.SessionTTL,
		tokenCache: tokenCache,
		logger:     log,
		now:        time.Now,
	}
}

// GoogleStart returns the consent URL together with the state and PKCE
// verifier the caller must hand back on callback.
func (s *authService) GoogleStart() (*dto.GoogleStartResponse, error) {
	if s.googleConf.ClientID == "" {
		return nil, serverutils.ErrInternal("Missing required env var: GOOGLE_CLIENT_ID", nil)
	}
	if s.googleConf.RedirectURL == "" {
		return nil, serverutils.ErrInternal("Missing required env var: GOOGLE_REDIRECT_URI", nil)
	}

	state, err := randomState()
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to generate Google auth payload", err)
	}
	verifier := oauth2.GenerateVerifier()

	url := s.googleConf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)

	return &dto.GoogleStartResponse{
		AuthorizationURL: url,
		State:            state,
		CodeVerifier:     verifier,
	}, nil
}

func (s *authService) GoogleCallback(ctx context.Context, req *dto.GoogleCallbackRequest) (*dto.GoogleCallbackResponse, error) {
	if req.State != req.ExpectedState {
		return nil, serverutils.ErrBadRequest("Invalid OAuth state")
	}

	token, err := s.googleConf.Exchange(ctx, req.Code, oauth2.VerifierOption(req.CodeVerifier))
	if err != nil {
		s.logger.Warn("AUTH", "Google code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, serverutils.ErrBadRequest("Failed to exchange Google authorization code")
	}
	if token.AccessToken == "" {
		return nil, serverutils.ErrBadRequest("Missing access token from Google token response")
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		s.logger.Warn("AUTH", "Google profile fetch failed", map[string]interface{}{"error": err.Error()})
		return nil, serverutils.ErrBadRequest("Failed to fetch Google user profile")
	}
	if profile.Id == "" || profile.Email == "" {
		return nil, serverutils.ErrBadRequest("Missing required profile fields from Google")
	}

	user, err := s.upsertGoogleAccount(ctx, profile, token)
	if err != nil {
		return nil, err
	}
	s.tokenCache.Delete(user.Id.String())

	sessionToken, expiresAt, err := serverutils.IssueSessionToken(s.jwtSecret, user.Id.String(), s.sessionTTL, s.now())
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to complete Google login", err)
	}

	details := map[string]interface{}{"user_id": user.Id}
	if req.UserAgent != nil {
		details["user_agent"] = *req.UserAgent
	}
	if req.IPAddress != nil {
		details["ip_address"] = *req.IPAddress
	}
	s.logger.Info("AUTH", "Google login completed", details)

	return &dto.GoogleCallbackResponse{
		SessionToken: sessionToken,
		ExpiresAt:    expiresAt,
		User:         toAuthUserResponse(user),
	}, nil
}

func (s *authService) fetchProfile(ctx context.Context, token *oauth2.Token) (*googleoauth.Userinfo, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(token)),
	}, s.userinfoOptions...)
	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return svc.Userinfo.Get().Context(ctx).Do()
}

// upsertGoogleAccount links the Google identity to a user, creating both on
// first login. A missing refresh token keeps the stored one.
func (s *authService) upsertGoogleAccount(ctx context.Context, profile *googleoauth.Userinfo, token *oauth2.Token) (*entity.User, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.ErrInternal("Failed to complete Google login", err)
	}
	defer uow.Rollback()

	now := s.now().UTC()
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultTokenLifetime)
	}
	avatar := optionalString(profile.Picture)

	account, err := uow.OauthAccountRepository().FindOne(ctx,
		specification.ByProvider{Provider: entity.OauthProviderGoogle},
		specification.ByProviderUserID{ProviderUserID: profile.Id},
	)
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to complete Google login", err)
	}

	var user *entity.User
	if account == nil {
		user = &entity.User{
			Id:        uuid.New(),
			FirstName: valueOrDefault(profile.GivenName, "Google"),
			LastName:  valueOrDefault(profile.FamilyName, "User"),
			Avatar:    avatar,
			CreatedAt: now,
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, serverutils.ErrInternal("Failed to complete Google login", err)
		}

		account = &entity.OauthAccount{
			Id:             uuid.New(),
			UserId:         user.Id,
			Provider:       entity.OauthProviderGoogle,
			ProviderUserId: profile.Id,
			Email:          profile.Email,
			AccessToken:    token.AccessToken,
			RefreshToken:   optionalString(token.RefreshToken),
			TokenType:      optionalString(token.TokenType),
			Scope:          tokenScope(token),
			ExpiresAt:      &expiresAt,
			CreatedAt:      now,
		}
		if err := uow.OauthAccountRepository().Create(ctx, account); err != nil {
			return nil, serverutils.ErrInternal("Failed to complete Google login", err)
		}
	} else {
		user, err = uow.UserRepository().FindOne(ctx, specification.ByID{ID: account.UserId})
		if err != nil {
			return nil, serverutils.ErrInternal("Failed to complete Google login", err)
		}
		if user == nil {
			return nil, serverutils.ErrInternal("Unable to resolve user after Google auth", nil)
		}

		account.Email = profile.Email
		account.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			account.RefreshToken = optionalString(token.RefreshToken)
		}
		account.TokenType = optionalString(token.TokenType)
		account.Scope = tokenScope(token)
		account.ExpiresAt = &expiresAt
		account.UpdatedAt = &now
		if err := uow.OauthAccountRepository().Update(ctx, account); err != nil {
			return nil, serverutils.ErrInternal("Failed to complete Google login", err)
		}

		user.Avatar = avatar
		user.UpdatedAt = &now
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return nil, serverutils.ErrInternal("Failed to complete Google login", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, serverutils.ErrInternal("Failed to complete Google login", err)
	}
	return user, nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.AuthUserResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, serverutils.ErrUnauthorized("Unauthorized")
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: uid})
	if err != nil {
		return nil, serverutils.ErrInternal("Failed to get current user", err)
	}
	if user == nil {
		return nil, serverutils.ErrUnauthorized("Unauthorized")
	}
	res := toAuthUserResponse(user)
	return &res, nil
}

// Logout drops cached Google credentials; session tokens expire on their own.
func (s *authService) Logout(ctx context.Context, userID string) error {
	s.tokenCache.Delete(userID)
	s.logger.Info("AUTH", "User logged out", map[string]interface{}{"user_id": userID})
	return nil
}

func toAuthUserResponse(u *entity.User) dto.AuthUserResponse {
	return dto.AuthUserResponse{
		Id:          u.Id,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		CountryCode: u.CountryCode,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func tokenScope(token *oauth2.Token) *string {
	scope, _ := token.Extra("scope").(string)
	return optionalString(scope)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func valueOrDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
