package memrepo

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/documents"
	"github.com/google/uuid"
)

// Documents is an in-memory documents.Repository.
type Documents struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.PostDocument

	InsertErr error
	FindErr   error
}

var _ documents.Repository = (*Documents)(nil)

func NewDocuments() *Documents {
	return &Documents{docs: map[uuid.UUID]models.PostDocument{}}
}

func (d *Documents) Insert(_ context.Context, doc *models.PostDocument) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.InsertErr != nil {
		return d.InsertErr
	}
	if _, ok := d.docs[doc.PostID]; ok {
		return common.ErrorAlreadyExists
	}
	d.docs[doc.PostID] = *doc
	return nil
}

func (d *Documents) FindByPostID(_ context.Context, id uuid.UUID) (*models.PostDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FindErr != nil {
		return nil, d.FindErr
	}
	doc, ok := d.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &doc, nil
}

// Len returns the number of stored documents.
func (d *Documents) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.docs)
}
