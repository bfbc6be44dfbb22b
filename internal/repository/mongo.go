package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/favkeeper/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDocument is the stored shape of a user.
type userDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserName   string             `bson:"userName"`
	Password   string             `bson:"password"`
	Favourites []string           `bson:"favourites"`
	History    []string           `bson:"history"`
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		UserName:     d.UserName,
		PasswordHash: []byte(d.Password),
		Favourites:   models.Dedupe(d.Favourites),
		History:      models.Dedupe(d.History),
	}
}

// MongoUserRepository implements user persistence on a MongoDB collection
// carrying a unique index on userName.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository creates a repository over the given collection.
func NewMongoUserRepository(users *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{users: users}
}

// Close disconnects the client the collection belongs to.
func (r *MongoUserRepository) Close(ctx context.Context) error {
	return r.users.Database().Client().Disconnect(ctx)
}

// CreateUser inserts a new user document with empty collections.
// A duplicate key on userName is reported as *models.DuplicateUserError.
func (r *MongoUserRepository) CreateUser(ctx context.Context, userName string, passwordHash []byte) (*models.User, error) {
	doc := userDocument{
		ID:         primitive.NewObjectID(),
		UserName:   userName,
		Password:   string(passwordHash),
		Favourites: []string{},
		History:    []string{},
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &models.DuplicateUserError{UserName: userName}
		}
		return nil, &models.PersistenceError{Op: "insert user", Err: err}
	}
	return doc.toModel(), nil
}

// GetUserByName fetches the user document with the given userName.
func (r *MongoUserRepository) GetUserByName(ctx context.Context, userName string) (*models.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"userName": userName}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{UserName: userName}
		}
		return nil, &models.PersistenceError{Op: "find user", Err: err}
	}
	return doc.toModel(), nil
}

// GetCollection returns the named collection of the user.
func (r *MongoUserRepository) GetCollection(ctx context.Context, userID string, kind models.CollectionKind) ([]string, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, unknownCollection(kind)
	}

	var doc userDocument
	err = r.users.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{string(kind): 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{UserID: userID}
		}
		return nil, &models.PersistenceError{Op: "get " + string(kind), Err: err}
	}
	return doc.toModel().Collection(kind), nil
}

// AddToCollection runs $addToSet guarded by the cap: the filter matches
// only when the item is already present or the array has no element at
// index limit-1, so check and write are one atomic operation.
func (r *MongoUserRepository) AddToCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string, limit int) ([]string, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, unknownCollection(kind)
	}
	field := string(kind)

	filter := bson.M{
		"_id": oid,
		"$or": bson.A{
			bson.M{field: itemID},
			bson.M{fmt.Sprintf("%s.%d", field, limit-1): bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$addToSet": bson.M{field: itemID}}

	items, err := r.findOneAndUpdate(ctx, filter, update, kind)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &models.PersistenceError{Op: "add to " + field, Err: err}
	}

	// No document matched: either the user is gone or the collection is full.
	if _, err := r.GetCollection(ctx, userID, kind); err != nil {
		return nil, err
	}
	return nil, &models.CapacityExceededError{UserID: userID, Collection: kind, Limit: limit}
}

// RemoveFromCollection runs $pull; pulling an absent id is a no-op.
func (r *MongoUserRepository) RemoveFromCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string) ([]string, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, unknownCollection(kind)
	}
	field := string(kind)

	items, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{field: itemID}},
		kind,
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{UserID: userID}
		}
		return nil, &models.PersistenceError{Op: "remove from " + field, Err: err}
	}
	return items, nil
}

func (r *MongoUserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, kind models.CollectionKind) ([]string, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{string(kind): 1})

	var doc userDocument
	if err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toModel().Collection(kind), nil
}

// objectID parses a user id. Ids that are not valid ObjectIDs cannot name
// any stored user.
func objectID(userID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, &models.NotFoundError{UserID: userID}
	}
	return oid, nil
}

func unknownCollection(kind models.CollectionKind) error {
	return &models.ValidationError{Field: "collection", Reason: fmt.Sprintf("unknown collection %q", kind)}
}
