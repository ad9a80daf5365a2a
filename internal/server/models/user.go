// Package models defines the server-side records shared by repositories,
// services and the HTTP layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	UserName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiredAt    *time.Time
}
