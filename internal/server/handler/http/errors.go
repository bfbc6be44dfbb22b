package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/favkeeper/internal/models"
	"go.uber.org/zap"
)

// statusFor maps an error kind to its HTTP status and the message shown to
// the client. Store internals are never exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrDuplicateUser), errors.Is(err, models.ErrCapacityExceeded):
		return http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrConnection):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
