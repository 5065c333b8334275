package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id          uuid.UUID
	FirstName   string
	LastName    string
	CountryCode *string
	Avatar      *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
