// Package users declares the account repository used by the auth services.
package users

import (
	"context"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts user. A taken username yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// IsActive returns the active flag, or common.ErrorNotFound.
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}
