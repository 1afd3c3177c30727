package devauth

// Package devauth provides a config-driven identity verifier for local development.

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/ports"
)

type entry struct {
	token  string
	userID string
}

// Verifier accepts a fixed table of bearer tokens. Identities never expire.
type Verifier struct {
	entries []entry
}

// NewVerifier parses "token=user" pairs. A pair without "=" uses the token as
// the user id.
func NewVerifier(pairs []string) (*Verifier, error) {
	v := &Verifier{}
	for _, raw := range pairs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		token, user, found := strings.Cut(raw, "=")
		token = strings.TrimSpace(token)
		user = strings.TrimSpace(user)
		if !found {
			user = token
		}
		if token == "" || user == "" {
			return nil, fmt.Errorf("dev auth: malformed token pair %q", raw)
		}
		v.entries = append(v.entries, entry{token: token, userID: user})
	}
	if len(v.entries) == 0 {
		return nil, errors.New("dev auth: at least one token is required")
	}
	return v, nil
}

// Verify compares every configured token in constant time.
func (v *Verifier) Verify(_ context.Context, credential string) (domainauth.Identity, error) {
	var match string
	for _, e := range v.entries {
		if subtle.ConstantTimeCompare([]byte(e.token), []byte(credential)) == 1 {
			match = e.userID
		}
	}
	if credential == "" || match == "" {
		return domainauth.Identity{}, model.ErrAuthenticationFailed
	}
	return domainauth.Identity{UserID: match}, nil
}

var _ ports.IdentityVerifier = (*Verifier)(nil)
