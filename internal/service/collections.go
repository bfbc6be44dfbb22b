package service

import (
	"context"
	"errors"

	"github.com/atinyakov/favkeeper/internal/models"
	"go.uber.org/zap"
)

// CollectionService manages the bounded favourites and history sets of a
// user. Both collections behave identically; only the field differs.
type CollectionService struct {
	repos RepositoryProvider
	limit int
	log   *zap.Logger
}

// NewCollectionService constructs a CollectionService capping every
// collection at models.MaxCollectionSize items.
func NewCollectionService(repos RepositoryProvider, log *zap.Logger) *CollectionService {
	return &CollectionService{repos: repos, limit: models.MaxCollectionSize, log: log}
}

// List returns the items of the user's collection.
func (s *CollectionService) List(ctx context.Context, kind models.CollectionKind, userID string) ([]string, error) {
	repo, err := s.repo(ctx, kind)
	if err != nil {
		return nil, err
	}

	items, err := repo.GetCollection(ctx, userID, kind)
	if err != nil {
		return nil, s.fail("get "+string(kind), userID, err)
	}
	return items, nil
}

// Add puts itemID into the user's collection. Adding an item that is
// already present succeeds without change. Adding a new item to a full
// collection fails with *models.CapacityExceededError and leaves it untouched.
func (s *CollectionService) Add(ctx context.Context, kind models.CollectionKind, userID, itemID string) ([]string, error) {
	if itemID == "" {
		return nil, &models.ValidationError{Field: "id", Reason: "Item id is required"}
	}
	repo, err := s.repo(ctx, kind)
	if err != nil {
		return nil, err
	}

	items, err := repo.GetCollection(ctx, userID, kind)
	if err != nil {
		return nil, s.fail("get "+string(kind), userID, err)
	}
	if models.Contains(items, itemID) {
		return items, nil
	}
	if len(items) >= s.limit {
		return nil, &models.CapacityExceededError{UserID: userID, Collection: kind, Limit: s.limit}
	}

	// The store re-checks the cap atomically, which covers concurrent adds
	// that passed the check above.
	items, err = repo.AddToCollection(ctx, userID, kind, itemID, s.limit)
	if err != nil {
		return nil, s.fail("add to "+string(kind), userID, err)
	}
	return items, nil
}

// Remove takes itemID out of the user's collection. Removing an absent item
// succeeds and returns the unchanged collection.
func (s *CollectionService) Remove(ctx context.Context, kind models.CollectionKind, userID, itemID string) ([]string, error) {
	repo, err := s.repo(ctx, kind)
	if err != nil {
		return nil, err
	}

	items, err := repo.RemoveFromCollection(ctx, userID, kind, itemID)
	if err != nil {
		return nil, s.fail("remove from "+string(kind), userID, err)
	}
	return items, nil
}

// ListFavourites returns the user's favourites.
func (s *CollectionService) ListFavourites(ctx context.Context, userID string) ([]string, error) {
	return s.List(ctx, models.Favourites, userID)
}

// AddFavourite adds itemID to the user's favourites.
func (s *CollectionService) AddFavourite(ctx context.Context, userID, itemID string) ([]string, error) {
	return s.Add(ctx, models.Favourites, userID, itemID)
}

// RemoveFavourite removes itemID from the user's favourites.
func (s *CollectionService) RemoveFavourite(ctx context.Context, userID, itemID string) ([]string, error) {
	return s.Remove(ctx, models.Favourites, userID, itemID)
}

// ListHistory returns the user's history.
func (s *CollectionService) ListHistory(ctx context.Context, userID string) ([]string, error) {
	return s.List(ctx, models.History, userID)
}

// AddHistory records itemID in the user's history.
func (s *CollectionService) AddHistory(ctx context.Context, userID, itemID string) ([]string, error) {
	return s.Add(ctx, models.History, userID, itemID)
}

// RemoveHistory removes itemID from the user's history.
func (s *CollectionService) RemoveHistory(ctx context.Context, userID, itemID string) ([]string, error) {
	return s.Remove(ctx, models.History, userID, itemID)
}

func (s *CollectionService) repo(ctx context.Context, kind models.CollectionKind) (UserRepository, error) {
	if _, err := models.ParseCollectionKind(string(kind)); err != nil {
		return nil, err
	}
	repo, err := s.repos.Get(ctx)
	if err != nil {
		s.log.Error("store unavailable", zap.Error(err))
		return nil, err
	}
	return repo, nil
}

func (s *CollectionService) fail(op, userID string, err error) error {
	err = storeError(op, err)
	if errors.Is(err, models.ErrPersistence) {
		s.log.Error("collection update failed", zap.String("op", op), zap.String("user_id", userID), zap.Error(err))
	}
	return err
}
