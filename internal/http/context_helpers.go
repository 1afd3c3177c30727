package httpx

import (
	"context"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across packages.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the verified identity.
func SetIdentityInContext(ctx context.Context, id domainauth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by RequireAuth and whether one was present.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domainauth.Identity)
	return id, ok
}
