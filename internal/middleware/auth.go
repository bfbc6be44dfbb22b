// Package middleware provides HTTP middlewares for authentication, request
// logging, metrics and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atinyakov/favkeeper/internal/auth"
)

type ctxKey string

const (
	userKey     ctxKey = "user"
	userNameKey ctxKey = "userName"
)

// TokenParser verifies a session token and returns its claims.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// TokenAuth is a middleware that requires a valid session token.
//
// The token is read from the Authorization header using either the "JWT"
// or the "Bearer" scheme. Requests without a valid token are rejected with
// 401. On success the user ID and name are stored in the request context.
func TokenAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, claims.UserID)
			ctx = context.WithValue(ctx, userNameKey, claims.UserName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromHeader(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "JWT") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetUserIDFromContext extracts the authenticated user ID from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// GetUserNameFromContext extracts the authenticated user name from the
// request context. Returns an empty string if not found.
func GetUserNameFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userNameKey).(string); ok {
		return s
	}
	return ""
}

// WithUserID returns a copy of ctx carrying userID, as TokenAuth would.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}
