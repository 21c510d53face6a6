package auth

import (
	"context"

	"github.com/haircarepro/haircarepro/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionUserKey is the context key for the logged-in user.
	sessionUserKey contextKey = "session_user"
)

// ContextWithUser adds the session user to the context.
func ContextWithUser(ctx context.Context, user *model.SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserKey, user)
}

// UserFromContext retrieves the session user from the context.
// Returns nil if not present.
func UserFromContext(ctx context.Context) *model.SessionUser {
	user, ok := ctx.Value(sessionUserKey).(*model.SessionUser)
	if !ok {
		return nil
	}
	return user
}

// MustUserFromContext retrieves the session user from the context.
// Panics if not present (use only behind RequireSession).
func MustUserFromContext(ctx context.Context) *model.SessionUser {
	user := UserFromContext(ctx)
	if user == nil {
		panic("session user not found - ensure session middleware is applied")
	}
	return user
}

// UserIDFromContext returns the logged-in user's ID, or empty string.
func UserIDFromContext(ctx context.Context) string {
	user := UserFromContext(ctx)
	if user == nil {
		return ""
	}
	return user.ID
}
