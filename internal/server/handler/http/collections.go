package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/favkeeper/internal/middleware"
	"github.com/atinyakov/favkeeper/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CollectionService defines the collection operations required by the
// HTTP handlers.
type CollectionService interface {
	List(ctx context.Context, kind models.CollectionKind, userID string) ([]string, error)
	Add(ctx context.Context, kind models.CollectionKind, userID, itemID string) ([]string, error)
	Remove(ctx context.Context, kind models.CollectionKind, userID, itemID string) ([]string, error)
}

// CollectionHandler serves the favourites and history endpoints of the
// authenticated user. Every endpoint responds with the resulting item list.
type CollectionHandler struct {
	Collections CollectionService
	Log         *zap.Logger
}

// List returns a handler responding with the user's collection.
func (h *CollectionHandler) List(kind models.CollectionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.Collections.List(r.Context(), kind, middleware.GetUserIDFromContext(r.Context()))
		h.respond(w, r, items, err)
	}
}

// Add returns a handler adding the {id} path parameter to the collection.
func (h *CollectionHandler) Add(kind models.CollectionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.Collections.Add(r.Context(), kind,
			middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
		h.respond(w, r, items, err)
	}
}

// Remove returns a handler removing the {id} path parameter from the collection.
func (h *CollectionHandler) Remove(kind models.CollectionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.Collections.Remove(r.Context(), kind,
			middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
		h.respond(w, r, items, err)
	}
}

func (h *CollectionHandler) respond(w http.ResponseWriter, r *http.Request, items []string, err error) {
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger(h.Log).Error("collection request failed",
				zap.String("user", middleware.GetUserNameFromContext(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err))
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, items)
}
