package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type postRecord struct {
	PostID      primitive.Binary `bson:"post_id"`
	Title       string           `bson:"title"`
	Creator     string           `bson:"creator"`
	Source      string           `bson:"source"`
	Description string           `bson:"description"`
	Uploader    primitive.Binary `bson:"uploader"`
}

// BinaryUUID encodes id as BSON binary subtype 4.
func BinaryUUID(id uuid.UUID) primitive.Binary {
	return primitive.Binary{Subtype: bsontype.BinaryUUID, Data: id[:]}
}

func fromBinary(b primitive.Binary) (uuid.UUID, error) {
	return uuid.FromBytes(b.Data)
}

type MongoRepository struct {
	collection *mongo.Collection
	logger     logging.Logger
}

func NewMongoRepository(collection *mongo.Collection, logger logging.Logger) *MongoRepository {
	return &MongoRepository{
		collection: collection,
		logger:     logger.With("repository", "documents"),
	}
}

// EnsureIndexes creates the unique index on post_id.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "post_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		r.logger.Warn(ctx, "failed to create index on post_id", "error", err)
		return fmt.Errorf("document store error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, doc *models.PostDocument) error {
	rec := postRecord{
		PostID:      BinaryUUID(doc.PostID),
		Title:       doc.Metadata.Title,
		Creator:     doc.Metadata.Creator,
		Source:      doc.Metadata.Source,
		Description: doc.Metadata.Description,
		Uploader:    BinaryUUID(doc.Uploader),
	}

	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrorAlreadyExists
		}
		r.logger.Error(ctx, "failed to insert post document", "post_id", doc.PostID.String(), "error", err)
		return fmt.Errorf("document store error: %w", err)
	}

	return nil
}

func (r *MongoRepository) FindByPostID(ctx context.Context, postID uuid.UUID) (*models.PostDocument, error) {
	var rec postRecord
	err := r.collection.FindOne(ctx, bson.M{"post_id": BinaryUUID(postID)}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		r.logger.Error(ctx, "failed to find post document", "post_id", postID.String(), "error", err)
		return nil, fmt.Errorf("document store error: %w", err)
	}

	id, err := fromBinary(rec.PostID)
	if err != nil {
		return nil, fmt.Errorf("document store error: decode post_id: %w", err)
	}
	uploader, err := fromBinary(rec.Uploader)
	if err != nil {
		return nil, fmt.Errorf("document store error: decode uploader: %w", err)
	}

	return &models.PostDocument{
		PostID: id,
		Metadata: models.Metadata{
			Title:       rec.Title,
			Creator:     rec.Creator,
			Source:      rec.Source,
			Description: rec.Description,
		},
		Uploader: uploader,
	}, nil
}
