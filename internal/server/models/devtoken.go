package models

import (
	"time"

	"github.com/google/uuid"
)

// DevToken is a long-lived, scoped credential for non-interactive clients.
type DevToken struct {
	TokenID    uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	Name       string
	Scope      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	IsRevoked  bool
	LastUsedAt *time.Time
}

func (t *DevToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
