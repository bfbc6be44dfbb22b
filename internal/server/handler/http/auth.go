// Package http provides the HTTP handlers of the account API: registration,
// login and the per-user favourites and history collections.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/favkeeper/internal/models"
	"go.uber.org/zap"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates an account and returns a confirmation message.
	Register(ctx context.Context, userName, password, passwordConfirmation string) (string, error)
	// Authenticate verifies the credentials and returns the user.
	Authenticate(ctx context.Context, userName, password string) (*models.User, error)
}

// TokenIssuer creates session tokens for authenticated users.
type TokenIssuer interface {
	Issue(u *models.User) (string, error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Tokens signs the token returned on login.
	Tokens TokenIssuer
	Log    *zap.Logger
}

// CredentialsRequest represents the JSON payload of register and login.
type CredentialsRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	// Password2 is the confirmation, required on register only.
	Password2 string `json:"password2"`
}

// Register handles user registration requests.
// On success it responds with {"message": "User <name> successfully registered"}.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}

	msg, err := h.AuthService.Register(r.Context(), req.UserName, req.Password, req.Password2)
	if err != nil {
		h.fail(w, "message", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Login handles credential login requests and responds with a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}
	if req.UserName == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User name and password are required"})
		return
	}

	u, err := h.AuthService.Authenticate(r.Context(), req.UserName, req.Password)
	if err != nil {
		h.fail(w, "message", err)
		return
	}

	token, err := h.Tokens.Issue(u)
	if err != nil {
		logger(h.Log).Error("failed to issue token", zap.String("user", u.UserName), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login successful",
		"token":   token,
	})
}

func (h *AuthHandler) fail(w http.ResponseWriter, key string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger(h.Log).Error("auth request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{key: msg})
}
