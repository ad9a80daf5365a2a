// Package sessions declares the server-side repository contract for issued
// session/refresh pairs.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
)

// Repository stores sessions. Rows are never deleted; revocation flips a flag.
type Repository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s *models.Session) error

	// FindActiveByToken returns the non-revoked session with this exact
	// session token, or common.ErrorNotFound.
	FindActiveByToken(ctx context.Context, sessionToken string) (*models.Session, error)

	// FindActiveByRefreshHash returns the non-revoked session whose refresh
	// token hash matches, or common.ErrorNotFound.
	FindActiveByRefreshHash(ctx context.Context, refreshHash string) (*models.Session, error)

	// Revoke marks a live session revoked. Unknown or already revoked ids
	// yield common.ErrorNotFound.
	Revoke(ctx context.Context, tokenID uuid.UUID) error
}
