package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/favkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func userDoc(id primitive.ObjectID, favourites, history bson.A) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "userName", Value: "alice"},
		{Key: "password", Value: "hash"},
		{Key: "favourites", Value: favourites},
		{Key: "history", Value: history},
	}
}

func TestMongoCreateUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u, err := repo.CreateUser(context.Background(), "alice", []byte("hash"))
		require.NoError(mt, err)
		assert.Equal(mt, "alice", u.UserName)
		assert.Len(mt, u.ID, 24)
		assert.Empty(mt, u.Favourites)
		assert.Empty(mt, u.History)
	})

	mt.Run("duplicate user name", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: userName_unique",
		}))

		_, err := repo.CreateUser(context.Background(), "alice", []byte("hash"))
		var dup *models.DuplicateUserError
		require.ErrorAs(mt, err, &dup)
		assert.Equal(mt, "alice", dup.UserName)
	})

	mt.Run("other write error", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))

		_, err := repo.CreateUser(context.Background(), "alice", []byte("hash"))
		assert.ErrorIs(mt, err, models.ErrPersistence)
		assert.NotErrorIs(mt, err, models.ErrDuplicateUser)
	})
}

func TestMongoGetUserByName(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()

	mt.Run("found", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			userDoc(id, bson.A{"a", "b", "a"}, bson.A{})))

		u, err := repo.GetUserByName(context.Background(), "alice")
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), u.ID)
		assert.Equal(mt, []byte("hash"), u.PasswordHash)
		assert.Equal(mt, []string{"a", "b"}, u.Favourites)
		assert.Equal(mt, []string{}, u.History)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.GetUserByName(context.Background(), "ghost")
		var nf *models.NotFoundError
		require.ErrorAs(mt, err, &nf)
		assert.Equal(mt, "ghost", nf.UserName)
	})
}

func TestMongoGetCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()

	mt.Run("history", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id}, {Key: "history", Value: bson.A{"x"}}}))

		items, err := repo.GetCollection(context.Background(), id.Hex(), models.History)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"x"}, items)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)

		_, err := repo.GetCollection(context.Background(), "not-an-object-id", models.Favourites)
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})
}

func TestMongoAddToCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()

	mt.Run("added", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{
			Key:   "value",
			Value: bson.D{{Key: "_id", Value: id}, {Key: "favourites", Value: bson.A{"item42"}}},
		}))

		items, err := repo.AddToCollection(context.Background(), id.Hex(), models.Favourites, "item42", models.MaxCollectionSize)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"item42"}, items)
	})

	mt.Run("collection full", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				bson.D{{Key: "_id", Value: id}, {Key: "favourites", Value: bson.A{"a"}}}),
		)

		_, err := repo.AddToCollection(context.Background(), id.Hex(), models.Favourites, "item", 1)
		var capErr *models.CapacityExceededError
		require.ErrorAs(mt, err, &capErr)
		assert.Equal(mt, models.Favourites, capErr.Collection)
		assert.Equal(mt, 1, capErr.Limit)
	})

	mt.Run("user missing", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch),
		)

		_, err := repo.AddToCollection(context.Background(), id.Hex(), models.History, "item", models.MaxCollectionSize)
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("command error", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "unknown operator",
		}))

		_, err := repo.AddToCollection(context.Background(), id.Hex(), models.History, "item", models.MaxCollectionSize)
		assert.ErrorIs(mt, err, models.ErrPersistence)
	})
}

func TestMongoRemoveFromCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	id := primitive.NewObjectID()

	mt.Run("removed", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{
			Key:   "value",
			Value: bson.D{{Key: "_id", Value: id}, {Key: "favourites", Value: bson.A{}}},
		}))

		items, err := repo.RemoveFromCollection(context.Background(), id.Hex(), models.Favourites, "item42")
		require.NoError(mt, err)
		assert.NotNil(mt, items)
		assert.Empty(mt, items)
	})

	mt.Run("user missing", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.RemoveFromCollection(context.Background(), id.Hex(), models.Favourites, "item42")
		assert.True(mt, errors.Is(err, models.ErrNotFound), "got %v", err)
	})
}
