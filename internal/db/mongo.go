package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the name of the collection holding user documents.
const UsersCollection = "users"

// OpenMongo connects to MongoDB at uri, verifies the connection and makes
// sure the users collection carries a unique index on userName.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	users := client.Database(database).Collection(UsersCollection)
	if err := EnsureUserIndexes(ctx, users); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return client, users, nil
}

// EnsureUserIndexes creates the unique userName index. It is a no-op when
// the index already exists.
func EnsureUserIndexes(ctx context.Context, users *mongo.Collection) error {
	_, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userName", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("userName_unique"),
	})
	if err != nil {
		return fmt.Errorf("create userName index: %w", err)
	}
	return nil
}
