// Package posts declares the relational repository for post ownership rows.
package posts

import (
	"context"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
)

// Inserter writes posts through one prepared statement. It must be closed
// when the batch is done.
type Inserter interface {
	Insert(ctx context.Context, post *models.Post) error
	Close() error
}

type Repository interface {
	// PrepareInsert prepares the insert statement shared by an upload batch.
	PrepareInsert(ctx context.Context) (Inserter, error)

	// Get returns the post with this id or common.ErrorNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)

	// ListIDs returns every post id in store order.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}
