package service

import (
	"errors"

	"github.com/atinyakov/favkeeper/internal/models"
)

var knownKinds = []error{
	models.ErrValidation,
	models.ErrDuplicateUser,
	models.ErrNotFound,
	models.ErrInvalidCredentials,
	models.ErrCapacityExceeded,
	models.ErrPersistence,
	models.ErrConnection,
}

// storeError passes typed errors through and wraps anything else as a
// persistence failure, so raw store errors never leave the service.
func storeError(op string, err error) error {
	for _, kind := range knownKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &models.PersistenceError{Op: op, Err: err}
}
