package middleware

import (
	"context"

	"github.com/baharkarakas/imagegen-backend/internal/models"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity resolved by the guard, if any.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}
