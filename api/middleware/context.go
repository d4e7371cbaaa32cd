package middleware

import (
	"context"

	"github.com/angelmondragon/bookloan-backend/internal/identity"
)

type contextKey string

const (
	ctxIdentity contextKey = "identity"
	ctxAccessID contextKey = "access_id"
)

// IdentityFromContext returns the caller resolved by Auth. The second result is
// false when the request never passed through Auth.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	if ctx == nil {
		return identity.Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(identity.Identity)
	if !ok || id.IsZero() {
		return identity.Identity{}, false
	}
	return id, true
}

func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// UserIDFromContext returns the caller's id as a string, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID.String()
}

// WithIdentity injects the resolved caller into the context.
func WithIdentity(ctx context.Context, resolved identity.Resolved) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxIdentity, resolved.Identity)
	return context.WithValue(ctx, ctxAccessID, resolved.AccessID)
}
