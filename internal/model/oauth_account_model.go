package model

import (
	"time"

	"github.com/google/uuid"
)

type OauthAccount struct {
	Id             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Provider       string     `gorm:"type:text;not null;uniqueIndex:uq_oauth_provider_user;uniqueIndex:uq_oauth_provider_email"`
	ProviderUserId string     `gorm:"type:text;not null;uniqueIndex:uq_oauth_provider_user"`
	Email          string     `gorm:"type:text;not null;uniqueIndex:uq_oauth_provider_email"`
	AccessToken    string     `gorm:"type:text;not null"`
	RefreshToken   *string    `gorm:"type:text"`
	TokenType      *string    `gorm:"type:text"`
	Scope          *string    `gorm:"type:text"`
	ExpiresAt      *time.Time `gorm:"type:timestamptz"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

func (OauthAccount) TableName() string {
	return "oauth_accounts"
}
