package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the authenticated user ID.
const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// setUserID stores the user ID in context.
func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores user ID in context.
// If no token is present or invalid, continues without user in context.
// Handlers use GetUserID to check authentication.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, _, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), user.ID)))
		})
	}
}
