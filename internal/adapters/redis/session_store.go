// Package redis provides Redis-backed identity adapters: a session store and
// a verifier that resolves bearer credentials to stored sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/ports"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// SessionStore keeps sessions as JSON strings whose Redis TTL follows ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	clock  clock.Clock
}

// NewSessionStore creates a session store under the given key prefix. An
// empty prefix defaults to "session:"; a nil clock uses wall time.
func NewSessionStore(client redis.UniversalClient, prefix string, clk clock.Clock) *SessionStore {
	if prefix == "" {
		prefix = "session:"
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &SessionStore{client: client, prefix: prefix, clock: clk}
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if sess.ExpiresAt.IsZero() {
		return errors.New("session expiry is required")
	}
	ttl := sess.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	// Key TTL has millisecond granularity; the stored expiry is authoritative.
	if sess.Expired(s.clock.Now()) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}

// SessionVerifier treats a bearer credential as a session id.
type SessionVerifier struct {
	store ports.SessionStore
}

// NewSessionVerifier wraps a session store as an identity verifier.
func NewSessionVerifier(store ports.SessionStore) *SessionVerifier {
	return &SessionVerifier{store: store}
}

func (v *SessionVerifier) Verify(ctx context.Context, credential string) (domainauth.Identity, error) {
	sess, err := v.store.Get(ctx, credential)
	if errors.Is(err, ErrNotFound) {
		return domainauth.Identity{}, model.ErrAuthenticationFailed
	}
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID == "" {
		return domainauth.Identity{}, fmt.Errorf("%w: session has no user", model.ErrAuthenticationFailed)
	}
	return sess.Identity(), nil
}

var (
	_ ports.SessionStore     = (*SessionStore)(nil)
	_ ports.IdentityVerifier = (*SessionVerifier)(nil)
)
