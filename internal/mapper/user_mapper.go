package mapper

import (
	"time"

	"ai-mail-workspace-be/internal/entity"
	"ai-mail-workspace-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}

	var updatedAt *time.Time
	if !u.UpdatedAt.IsZero() {
		t := u.UpdatedAt
		updatedAt = &t
	}

	return &entity.User{
		Id:          u.Id,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		CountryCode: u.CountryCode,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}

	var updatedAt time.Time
	if u.UpdatedAt != nil {
		updatedAt = *u.UpdatedAt
	}

	return &model.User{
		Id:          u.Id,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		CountryCode: u.CountryCode,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

// Oauth Account Mappers

func (m *UserMapper) OauthAccountToEntity(a *model.OauthAccount) *entity.OauthAccount {
	if a == nil {
		return nil
	}

	var updatedAt *time.Time
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		updatedAt = &t
	}

	return &entity.OauthAccount{
		Id:             a.Id,
		UserId:         a.UserId,
		Provider:       a.Provider,
		ProviderUserId: a.ProviderUserId,
		Email:          a.Email,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenType:      a.TokenType,
		Scope:          a.Scope,
		ExpiresAt:      a.ExpiresAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *UserMapper) OauthAccountToModel(a *entity.OauthAccount) *model.OauthAccount {
	if a == nil {
		return nil
	}

	var updatedAt time.Time
	if a.UpdatedAt != nil {
		updatedAt = *a.UpdatedAt
	}

	return &model.OauthAccount{
		Id:             a.Id,
		UserId:         a.UserId,
		Provider:       a.Provider,
		ProviderUserId: a.ProviderUserId,
		Email:          a.Email,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenType:      a.TokenType,
		Scope:          a.Scope,
		ExpiresAt:      a.ExpiresAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}
