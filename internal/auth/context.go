package auth

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity stores the acting identity on the context. The stored user is
// the public projection: no credential hash, no refresh token.
func WithIdentity(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, identityKey, user.Public())
}

// IdentityFromContext returns the acting identity attached by the
// authentication middleware, if any.
func IdentityFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(identityKey).(models.User)
	return user, ok
}
