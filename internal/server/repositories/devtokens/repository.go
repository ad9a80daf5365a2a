// Package devtokens declares the repository for developer tokens.
package devtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *models.DevToken) error

	// FindActive returns the non-revoked token whose stored hash equals
	// either the raw credential or its digest. Missing tokens yield
	// common.ErrorNotFound.
	FindActive(ctx context.Context, credential, credentialHash string) (*models.DevToken, error)

	TouchLastUsed(ctx context.Context, tokenID uuid.UUID, at time.Time) error

	// RevokeByName revokes every live token of userID called name and
	// returns how many were revoked.
	RevokeByName(ctx context.Context, userID uuid.UUID, name string) (int64, error)
}
