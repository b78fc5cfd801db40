package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/searchgame/internal/api/apierr"
	"github.com/mcoot/searchgame/internal/model"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// TokenValidator resolves a bearer token to the user it was issued to
type TokenValidator interface {
	ValidateToken(token string) (model.UserID, error)
}

// Auth creates authentication middleware
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			userID, err := validator.ValidateToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// WithUserID stores the authenticated user on the context
func WithUserID(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserID returns the authenticated user from the request context
func GetUserID(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(userIDContextKey).(model.UserID)
	return userID, ok && userID != ""
}

// MustGetUserID returns the authenticated user or panics
func MustGetUserID(ctx context.Context) model.UserID {
	userID, ok := GetUserID(ctx)
	if !ok {
		panic("no user in context - auth middleware not applied?")
	}
	return userID
}
