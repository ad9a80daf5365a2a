package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/blobstore"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/documents"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// newContentID is a seam for tests.
var newContentID = uuid.New

var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,16}$`)

// UploadItem is one file of an upload batch.
type UploadItem struct {
	FileName string
	Body     io.Reader
}

// IngestCoordinator stores upload batches across the blob store, the
// relational store and the document store.
//
// Items run one after another. For each item the file is written first, then
// the post row, then the metadata document. A failure stops the batch and
// nothing already written is undone, so the residue is at most an orphaned
// file or a post row without its document.
type IngestCoordinator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	documents   documents.Repository
	blobs       blobstore.Store
	logger      logging.Logger
}

func NewIngestCoordinator(db *sql.DB, m repomanager.RepositoryManager, docs documents.Repository, blobs blobstore.Store, logger logging.Logger) *IngestCoordinator {
	return &IngestCoordinator{
		db:          db,
		repomanager: m,
		documents:   docs,
		blobs:       blobs,
		logger:      logger.With("module", "ingest"),
	}
}

// Ingest stores items for userID and returns the stored file names
// ("<content-id>.<ext>") in input order.
func (c *IngestCoordinator) Ingest(ctx context.Context, userID uuid.UUID, items []UploadItem, metadata []models.Metadata) ([]string, error) {
	if len(items) != len(metadata) {
		return nil, common.E(common.KindCountMismatch, "ingest",
			fmt.Errorf("%d files, %d metadata entries", len(items), len(metadata)))
	}

	stored := make([]string, 0, len(items))
	if len(items) == 0 {
		return stored, nil
	}

	inserter, err := c.repomanager.Posts(c.db).PrepareInsert(ctx)
	if err != nil {
		c.logger.Error(ctx, "prepare post insert failed", "error", err)
		return nil, common.DB(common.KindRelationalInsertFailed, common.StoreRelational, "ingest.prepare", err)
	}
	defer func() {
		if err := inserter.Close(); err != nil {
			c.logger.Warn(ctx, "closing post statement failed", "error", err)
		}
	}()

	for i, item := range items {
		id := newContentID()

		ext := filepath.Ext(item.FileName)
		if len(ext) < 2 || !extensionPattern.MatchString(ext[1:]) {
			return nil, common.E(common.KindMissingExtension, "ingest.extension",
				fmt.Errorf("file %d: %q", i, item.FileName))
		}
		name := id.String() + ext

		if err := c.blobs.Put(ctx, name, item.Body); err != nil {
			c.logger.Error(ctx, "file write failed", "file", name, "error", err)
			return nil, common.E(common.KindWriteFailed, "ingest.file", err)
		}

		if err := inserter.Insert(ctx, &models.Post{ID: id, UserID: userID, FileName: name}); err != nil {
			c.logger.Error(ctx, "post insert failed", "post_id", id, "file", name, "error", err)
			return nil, common.DB(common.KindRelationalInsertFailed, common.StoreRelational, "ingest.post", err)
		}

		doc := &models.PostDocument{PostID: id, Metadata: metadata[i], Uploader: userID}
		if err := c.documents.Insert(ctx, doc); err != nil {
			c.logger.Error(ctx, "post document insert failed", "post_id", id, "error", err)
			return nil, common.DB(common.KindDocumentInsertFailed, common.StoreDocument, "ingest.document", err)
		}

		c.logger.Info(ctx, "post stored", "post_id", id, "user_id", userID, "file", name)
		stored = append(stored, name)
	}

	return stored, nil
}
