package auth

import (
	"context"

	"usermanagement/models"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying the authenticated user.
func WithIdentity(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, identityKey, user)
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityKey).(*models.User)
	return u, ok && u != nil
}

// IsStaff reports whether the request is authenticated as a staff user.
func IsStaff(ctx context.Context) bool {
	u, ok := CurrentUser(ctx)
	return ok && u.IsStaff
}
