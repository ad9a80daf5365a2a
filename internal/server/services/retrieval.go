package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/filex"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/blobstore"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/documents"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Item is the combined read view of a post.
type Item struct {
	FileName string
	Metadata models.Metadata
}

// RetrievalGateway reads posts back from both stores and serves file bytes.
type RetrievalGateway struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	documents   documents.Repository
	blobs       blobstore.Store
	logger      logging.Logger
}

func NewRetrievalGateway(db *sql.DB, m repomanager.RepositoryManager, docs documents.Repository, blobs blobstore.Store, logger logging.Logger) *RetrievalGateway {
	return &RetrievalGateway{
		db:          db,
		repomanager: m,
		documents:   docs,
		blobs:       blobs,
		logger:      logger.With("module", "retrieval"),
	}
}

// Resolve returns the file name and metadata of a post. A post whose
// document is missing fails with MetadataMissing rather than NotFound.
func (g *RetrievalGateway) Resolve(ctx context.Context, contentID string) (*Item, error) {
	id, err := uuid.Parse(contentID)
	if err != nil {
		return nil, common.E(common.KindInvalidIdentifier, "retrieval.resolve", err)
	}

	post, err := g.repomanager.Posts(g.db).Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.E(common.KindNotFound, "retrieval.post", err)
		}
		g.logger.Error(ctx, "post lookup failed", "post_id", id, "error", err)
		return nil, storeErr(common.StoreRelational, "retrieval.post", err)
	}

	doc, err := g.documents.FindByPostID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			g.logger.Warn(ctx, "post has no metadata document", "post_id", id)
			return nil, common.E(common.KindMetadataMissing, "retrieval.document", err)
		}
		g.logger.Error(ctx, "post document lookup failed", "post_id", id, "error", err)
		return nil, storeErr(common.StoreDocument, "retrieval.document", err)
	}

	return &Item{FileName: post.FileName, Metadata: doc.Metadata}, nil
}

// ListAll returns every post id in store order.
func (g *RetrievalGateway) ListAll(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := g.repomanager.Posts(g.db).ListIDs(ctx)
	if err != nil {
		g.logger.Error(ctx, "post listing failed", "error", err)
		return nil, storeErr(common.StoreRelational, "retrieval.list", err)
	}
	return ids, nil
}

// ServeRaw opens a stored file. Paths that are absolute, contain a parent
// segment, or resolve outside the storage root are rejected before or
// after resolution.
func (g *RetrievalGateway) ServeRaw(ctx context.Context, requested string) (*blobstore.Object, error) {
	const op = "retrieval.raw"

	if _, err := filex.CleanRelative(requested); err != nil {
		g.logger.Warn(ctx, "rejected media path", "path", requested)
		return nil, common.E(common.KindPathTraversalRejected, op, err)
	}

	obj, err := g.blobs.Open(ctx, requested)
	if err != nil {
		switch {
		case errors.Is(err, filex.ErrOutsideRoot):
			g.logger.Warn(ctx, "rejected media path", "path", requested)
			return nil, common.E(common.KindPathTraversalRejected, op, err)
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.E(common.KindNotFound, op, err)
		}
		g.logger.Error(ctx, "media open failed", "path", requested, "error", err)
		return nil, common.E(common.KindInternal, op, err)
	}
	return obj, nil
}
