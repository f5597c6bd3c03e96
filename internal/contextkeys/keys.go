// Package contextkeys carries the identity resolved from a verified access
// token through the request context.
package contextkeys

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	keyUserID    contextKey = "userID"
	keyUserEmail contextKey = "userEmail"
	keyUserRole  contextKey = "userRole"
)

// WithUser returns a context carrying the authenticated user's token claims.
func WithUser(ctx context.Context, id, email, role string) context.Context {
	ctx = context.WithValue(ctx, keyUserID, id)
	ctx = context.WithValue(ctx, keyUserEmail, email)
	return context.WithValue(ctx, keyUserRole, role)
}

// UserID returns the authenticated user's id.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(keyUserID).(string)
	return id, ok
}

// UserEmail returns the authenticated user's email.
func UserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(keyUserEmail).(string)
	return email, ok
}

// UserRole returns the authenticated user's role.
func UserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(keyUserRole).(string)
	return role, ok
}
