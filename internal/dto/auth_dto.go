package dto

import (
	"time"

	"github.com/google/uuid"
)

type GoogleStartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	CodeVerifier     string `json:"code_verifier"`
}

type GoogleCallbackRequest struct {
	Code          string  `json:"code" validate:"required"`
	State         string  `json:"state" validate:"required"`
	ExpectedState string  `json:"expected_state" validate:"required"`
	CodeVerifier  string  `json:"code_verifier" validate:"required"`
	UserAgent     *string `json:"user_agent"`
	IPAddress     *string `json:"ip_address"`
}

type AuthUserResponse struct {
	Id          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	CountryCode *string    `json:"country_code"`
	Avatar      *string    `json:"avatar"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type GoogleCallbackResponse struct {
	SessionToken string           `json:"session_token"`
	ExpiresAt    time.Time        `json:"expires_at"`
	User         AuthUserResponse `json:"user"`
}

type MeResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          AuthUserResponse `json:"user"`
}

type WsTokenResponse struct {
	Token string `json:"token"`
}
