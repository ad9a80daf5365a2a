// Package documents stores post metadata in the document store. Records are
// keyed by the post id encoded as BSON binary subtype 4, the same sixteen
// bytes the relational store holds, so lookups compare raw bytes.
package documents

import (
	"context"

	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// Insert stores doc. A second document for the same post fails.
	Insert(ctx context.Context, doc *models.PostDocument) error

	// FindByPostID returns the document or common.ErrorNotFound.
	FindByPostID(ctx context.Context, postID uuid.UUID) (*models.PostDocument, error)
}
