package ports

// Package ports defines interfaces (hexagonal ports) for identity behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
)

// IdentityVerifier resolves a credential to the identity it represents.
// Failures wrap model.ErrAuthenticationFailed.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (domainauth.Identity, error)
}

// SessionStore persists and retrieves sessions issued by an external login service.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
