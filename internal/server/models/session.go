package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one issued session/refresh pair. The clear refresh token is
// never stored, only RefreshTokenHash.
type Session struct {
	TokenID          uuid.UUID
	UserID           uuid.UUID
	SessionToken     string
	RefreshTokenHash string
	SessionExpiresAt time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	IsRevoked        bool
	IPAddress        string
	UserAgent        string
}

// SessionExpired reports whether the session token is past its expiry.
// A token expiring exactly at now is still valid.
func (s *Session) SessionExpired(now time.Time) bool {
	return s.SessionExpiresAt.Before(now)
}

// RefreshExpired reports whether the refresh token is past its expiry.
func (s *Session) RefreshExpired(now time.Time) bool {
	return s.RefreshExpiresAt.Before(now)
}

// ClientInfo carries the audit fields recorded with a new session.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
