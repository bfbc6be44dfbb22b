package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/atinyakov/favkeeper/internal/models"
	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. It is meant for
// development runs and tests; all data is lost on restart.
type MemoryUserRepository struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	byName map[string]string
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:   make(map[string]*models.User),
		byName: make(map[string]string),
	}
}

// CreateUser stores a new user with empty collections.
func (r *MemoryUserRepository) CreateUser(ctx context.Context, userName string, passwordHash []byte) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[userName]; ok {
		return nil, &models.DuplicateUserError{UserName: userName}
	}
	u := &models.User{
		ID:           uuid.NewString(),
		UserName:     userName,
		PasswordHash: slices.Clone(passwordHash),
		Favourites:   []string{},
		History:      []string{},
	}
	r.byID[u.ID] = u
	r.byName[userName] = u.ID
	return cloneUser(u), nil
}

// GetUserByName looks a user up by name.
func (r *MemoryUserRepository) GetUserByName(ctx context.Context, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[userName]
	if !ok {
		return nil, &models.NotFoundError{UserName: userName}
	}
	return cloneUser(r.byID[id]), nil
}

// GetCollection returns the named collection of the user.
func (r *MemoryUserRepository) GetCollection(ctx context.Context, userID string, kind models.CollectionKind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return nil, &models.NotFoundError{UserID: userID}
	}
	items, err := field(u, kind)
	if err != nil {
		return nil, err
	}
	return slices.Clone(*items), nil
}

// AddToCollection adds itemID unless the collection already holds limit
// other items.
func (r *MemoryUserRepository) AddToCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return nil, &models.NotFoundError{UserID: userID}
	}
	items, err := field(u, kind)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(*items, itemID) {
		if len(*items) >= limit {
			return nil, &models.CapacityExceededError{UserID: userID, Collection: kind, Limit: limit}
		}
		*items = append(*items, itemID)
	}
	return slices.Clone(*items), nil
}

// RemoveFromCollection removes itemID; removing an absent id is a no-op.
func (r *MemoryUserRepository) RemoveFromCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return nil, &models.NotFoundError{UserID: userID}
	}
	items, err := field(u, kind)
	if err != nil {
		return nil, err
	}
	*items = slices.DeleteFunc(*items, func(s string) bool { return s == itemID })
	return slices.Clone(*items), nil
}

func field(u *models.User, kind models.CollectionKind) (*[]string, error) {
	switch kind {
	case models.Favourites:
		return &u.Favourites, nil
	case models.History:
		return &u.History, nil
	}
	return nil, unknownCollection(kind)
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PasswordHash = slices.Clone(u.PasswordHash)
	c.Favourites = slices.Clone(u.Favourites)
	c.History = slices.Clone(u.History)
	return &c
}
