package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var (
	postID = uuid.MustParse("11111111-2222-4333-8444-555555555555")
	userID = uuid.MustParse("6f1c2a7e-8a8b-4f0e-9d57-3f3c8c1d2e4f")
)

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestBinaryUUID_RawBytes(t *testing.T) {
	b := BinaryUUID(postID)
	assert.Equal(t, byte(0x04), b.Subtype)
	assert.Equal(t, postID[:], b.Data)

	back, err := fromBinary(b)
	require.NoError(t, err)
	assert.Equal(t, postID, back)
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert ok", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Insert(context.Background(), &models.PostDocument{
			PostID:   postID,
			Metadata: models.Metadata{Title: "Cat"},
			Uploader: userID,
		})
		require.NoError(mt, err)
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := repo.Insert(context.Background(), &models.PostDocument{PostID: postID, Uploader: userID})
		assert.ErrorIs(mt, err, common.ErrorAlreadyExists)
	})

	mt.Run("insert command error", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 2, Name: "BadValue", Message: "boom",
		}))

		err := repo.Insert(context.Background(), &models.PostDocument{PostID: postID, Uploader: userID})
		require.Error(mt, err)
		assert.False(mt, errors.Is(err, common.ErrorAlreadyExists))
		assert.Contains(mt, err.Error(), "document store error")
	})

	mt.Run("find by post id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns(mt), mtest.FirstBatch, bson.D{
			{Key: "post_id", Value: BinaryUUID(postID)},
			{Key: "title", Value: "Cat"},
			{Key: "creator", Value: "alice"},
			{Key: "source", Value: "phone"},
			{Key: "description", Value: "a cat"},
			{Key: "uploader", Value: BinaryUUID(userID)},
		}))

		doc, err := repo.FindByPostID(context.Background(), postID)
		require.NoError(mt, err)
		assert.Equal(mt, postID, doc.PostID)
		assert.Equal(mt, userID, doc.Uploader)
		assert.Equal(mt, models.Metadata{Title: "Cat", Creator: "alice", Source: "phone", Description: "a cat"}, doc.Metadata)
	})

	mt.Run("find missing", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := repo.FindByPostID(context.Background(), postID)
		assert.ErrorIs(mt, err, common.ErrorNotFound)
	})

	mt.Run("find command error", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not allowed",
		}))

		_, err := repo.FindByPostID(context.Background(), postID)
		require.Error(mt, err)
		assert.False(mt, errors.Is(err, common.ErrorNotFound))
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll, logging.Discard())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, repo.EnsureIndexes(context.Background()))
	})
}
