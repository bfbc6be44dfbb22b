// Package service provides the user-account business logic: credential
// handling and per-user collection management, delegating persistence to
// a UserRepository obtained from a lazily connected store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/favkeeper/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor applied to new passwords.
const HashCost = 10

// UserRepository defines the persistence operations
// required by the services. Implementations report failures with the
// error variants from the models package.
type UserRepository interface {
	// CreateUser stores a new user with empty collections.
	// Returns *models.DuplicateUserError when userName is taken.
	CreateUser(ctx context.Context, userName string, passwordHash []byte) (*models.User, error)
	// GetUserByName returns the user with the given name or *models.NotFoundError.
	GetUserByName(ctx context.Context, userName string) (*models.User, error)
	// GetCollection returns the named collection of the user.
	GetCollection(ctx context.Context, userID string, kind models.CollectionKind) ([]string, error)
	// AddToCollection adds itemID to the collection in one atomic step,
	// unless it already holds limit other items.
	AddToCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string, limit int) ([]string, error)
	// RemoveFromCollection removes itemID from the collection, if present.
	RemoveFromCollection(ctx context.Context, userID string, kind models.CollectionKind, itemID string) ([]string, error)
}

// RepositoryProvider hands out the repository, connecting to the store on
// first use. Connection failures are reported as *models.ConnectionError.
type RepositoryProvider interface {
	Get(ctx context.Context) (UserRepository, error)
}

// AuthService implements registration and credential verification.
type AuthService struct {
	repos RepositoryProvider
	cost  int
	log   *zap.Logger
}

// NewAuthService constructs a new AuthService using the provided repository provider.
func NewAuthService(repos RepositoryProvider, log *zap.Logger) *AuthService {
	return &AuthService{repos: repos, cost: HashCost, log: log}
}

// Register creates an account after checking that password and its
// confirmation match. The password is stored as a bcrypt hash only.
// It returns a human readable confirmation message.
func (s *AuthService) Register(ctx context.Context, userName, password, passwordConfirmation string) (string, error) {
	if strings.TrimSpace(userName) == "" {
		return "", &models.ValidationError{Field: "userName", Reason: "User name is required"}
	}
	if password == "" {
		return "", &models.ValidationError{Field: "password", Reason: "Password is required"}
	}
	if password != passwordConfirmation {
		return "", &models.ValidationError{Field: "password2", Reason: "Passwords do not match"}
	}

	repo, err := s.repos.Get(ctx)
	if err != nil {
		s.log.Error("store unavailable", zap.Error(err))
		return "", err
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &models.ValidationError{Field: "password", Reason: "Password is too long"}
		}
		return "", &models.PersistenceError{Op: "hash password", Err: err}
	}

	if _, err := repo.CreateUser(ctx, userName, hash); err != nil {
		err = storeError("create user", err)
		if errors.Is(err, models.ErrPersistence) {
			s.log.Error("failed to create user", zap.String("user", userName), zap.Error(err))
		}
		return "", err
	}

	s.log.Info("user registered", zap.String("user", userName))
	return fmt.Sprintf("User %s successfully registered", userName), nil
}

// Authenticate verifies the password of userName and returns the user
// without its password hash.
func (s *AuthService) Authenticate(ctx context.Context, userName, password string) (*models.User, error) {
	repo, err := s.repos.Get(ctx)
	if err != nil {
		s.log.Error("store unavailable", zap.Error(err))
		return nil, err
	}

	u, err := repo.GetUserByName(ctx, userName)
	if err != nil {
		return nil, storeError("find user", err)
	}

	if err := s.compare(ctx, u.PasswordHash, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.log.Debug("password mismatch", zap.String("user", userName))
			return nil, &models.InvalidCredentialsError{UserName: userName}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &models.PersistenceError{Op: "verify password", Err: ctxErr}
		}
		s.log.Error("stored password hash is unusable", zap.String("user", userName), zap.Error(err))
		return nil, &models.PersistenceError{Op: "verify password", Err: err}
	}

	u.PasswordHash = nil
	return u, nil
}

// hash runs bcrypt off the caller's goroutine so that a cancelled request
// does not have to wait for the work factor to elapse.
func (s *AuthService) hash(ctx context.Context, password string) ([]byte, error) {
	type result struct {
		hash []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		ch <- result{h, err}
	}()

	select {
	case r := <-ch:
		return r.hash, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *AuthService) compare(ctx context.Context, hash []byte, password string) error {
	ch := make(chan error, 1)
	go func() {
		ch <- bcrypt.CompareHashAndPassword(hash, []byte(password))
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
