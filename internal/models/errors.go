package models

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every error variant below matches exactly one of them
// through errors.Is, so callers can branch on the kind without knowing
// the concrete type.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateUser      = errors.New("duplicate user")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrPersistence        = errors.New("persistence error")
	ErrConnection         = errors.New("connection error")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// DuplicateUserError reports that the user name is already registered.
type DuplicateUserError struct {
	UserName string
}

func (e *DuplicateUserError) Error() string { return "User Name already taken" }

func (e *DuplicateUserError) Is(target error) bool { return target == ErrDuplicateUser }

// NotFoundError reports that no user matches the given id or name.
// Exactly one of UserID and UserName is set.
type NotFoundError struct {
	UserID   string
	UserName string
}

func (e *NotFoundError) Error() string {
	if e.UserName != "" {
		return fmt.Sprintf("Unable to find user %s", e.UserName)
	}
	return fmt.Sprintf("Unable to find user with id: %s", e.UserID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidCredentialsError reports a password mismatch.
type InvalidCredentialsError struct {
	UserName string
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("Incorrect password for user %s", e.UserName)
}

func (e *InvalidCredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

// CapacityExceededError reports that a collection already holds Limit items.
type CapacityExceededError struct {
	UserID     string
	Collection CollectionKind
	Limit      int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("Unable to update %s for user with id: %s: limit of %d reached", e.Collection, e.UserID, e.Limit)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// PersistenceError wraps an unexpected store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// ConnectionError reports that the store could not be reached.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("store unavailable: %v", e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
