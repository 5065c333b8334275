package entity

import (
	"time"

	"github.com/google/uuid"
)

const OauthProviderGoogle = "google"

type OauthAccount struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Provider       string
	ProviderUserId string
	Email          string
	AccessToken    string
	RefreshToken   *string
	TokenType      *string
	Scope          *string
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
