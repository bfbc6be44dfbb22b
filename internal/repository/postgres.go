// Package repository provides persistence implementations of the user
// store: MongoDB (the primary document store), PostgreSQL and an in-memory
// variant for development.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/favkeeper/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// PostgresUserRepository implements user persistence against a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance with the users table in place.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// Close closes the underlying database handle.
func (r *PostgresUserRepository) Close(ctx context.Context) error {
	return r.DB.Close()
}

// CreateUser inserts a new user with empty collections.
// A unique violation on user_name is reported as *models.DuplicateUserError.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, userName string, passwordHash []byte) (*models.User, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, user_name, password_hash) VALUES ($1, $2, $3)`,
		id, userName, string(passwordHash),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, &models.DuplicateUserError{UserName: userName}
		}
		return nil, &models.PersistenceError{Op: "insert user", Err: err}
	}

	return &models.User{
		ID:           id,
		UserName:     userName,
		PasswordHash: passwordHash,
		Favourites:   []string{},
		History:      []string{},
	}, nil
}

// GetUserByName fetches a user together with both collections.
func (r *PostgresUserRepository) GetUserByName(ctx context.Context, userName string) (*models.User, error) {
	var (
		u          models.User
		hash       string
		favourites pq.StringArray
		history    pq.StringArray
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, user_name, password_hash, favourites, history FROM users WHERE user_name = $1
	`, userName).Scan(&u.ID, &u.UserName, &hash, &favourites, &history)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{UserName: userName}
		}
		return nil, &models.PersistenceError{Op: "find user", Err: err}
	}

	u.PasswordHash = []byte(hash)
	u.Favourites = models.Dedupe(favourites)
	u.History = models.Dedupe(history)
	return &u, nil
}

// GetCollection returns the named collection of the user.
func (r *PostgresUserRepository) GetCollection(ctx context.Context, userID string, kind models.CollectionKind) ([]string, error) {
	col, err := column(kind)
	if err != nil {
		return nil, err
	}

	var items pq.StringArray
	err = r.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, col),
		userID,
	).Scan(&items)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{UserID: userID}
		}
		return nil, &models.PersistenceError{Op: "get " + col, Err: err}
	}
	return models.Dedupe(items), nil
}

// AddToCollection appends itemID in a single conditional update: the row
// only matches when the item is already present or the collection holds
// fewer than limit items, so the cap holds under concurrent writers.
func (r *PostgresUserRepository) AddToCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string, limit int) ([]string, error) {
	col, err := column(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE users
		   SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END
		 WHERE id = $1 AND ($2 = ANY(%[1]s) OR cardinality(%[1]s) < $3)
		RETURNING %[1]s
	`, col)

	var items pq.StringArray
	err = r.DB.QueryRowContext(ctx, query, userID, itemID, limit).Scan(&items)
	if err == nil {
		return models.Dedupe(items), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, &models.PersistenceError{Op: "add to " + col, Err: err}
	}

	// No row matched: either the user is gone or the collection is full.
	exists, err := r.userExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &models.NotFoundError{UserID: userID}
	}
	return nil, &models.CapacityExceededError{UserID: userID, Collection: kind, Limit: limit}
}

// RemoveFromCollection removes every occurrence of itemID from the collection.
func (r *PostgresUserRepository) RemoveFromCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string) ([]string, error) {
	col, err := column(kind)
	if err != nil {
		return nil, err
	}

	var items pq.StringArray
	err = r.DB.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE users SET %[1]s = array_remove(%[1]s, $2) WHERE id = $1 RETURNING %[1]s`, col),
		userID, itemID,
	).Scan(&items)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{UserID: userID}
		}
		return nil, &models.PersistenceError{Op: "remove from " + col, Err: err}
	}
	return models.Dedupe(items), nil
}

func (r *PostgresUserRepository) userExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, &models.PersistenceError{Op: "check user", Err: err}
	}
	return exists, nil
}

// column maps a collection to its column name. Only known kinds are ever
// interpolated into SQL.
func column(kind models.CollectionKind) (string, error) {
	if !kind.Valid() {
		return "", unknownCollection(kind)
	}
	return string(kind), nil
}
