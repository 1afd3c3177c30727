package oidc

// Package oidc verifies OIDC ID tokens presented as bearer credentials.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/ports"
)

// VerifierConfig holds configuration for the ID-token verifier.
type VerifierConfig struct {
	ClientID   string
	Issuer     string
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
}

// Verifier checks ID-token signatures, issuer, audience and expiry.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier performs OIDC discovery against the issuer and builds a verifier.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}

	op, err := Discover(ctx, cfg.Issuer, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return &Verifier{verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID})}, nil
}

// NewStaticVerifier builds a verifier from a fixed key set, skipping discovery.
func NewStaticVerifier(issuer, clientID string, keys gooidc.KeySet) *Verifier {
	return &Verifier{verifier: gooidc.NewVerifier(issuer, keys, &gooidc.Config{ClientID: clientID})}
}

// Discover fetches the issuer's discovery document. It accepts either the
// issuer URL or the full well-known URL.
func Discover(ctx context.Context, issuer string, httpClient *http.Client) (*gooidc.Provider, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer = strings.TrimSuffix(issuer, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return op, nil
}

func (v *Verifier) Verify(ctx context.Context, credential string) (domainauth.Identity, error) {
	if credential == "" {
		return domainauth.Identity{}, model.ErrAuthenticationFailed
	}
	tok, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: %v", model.ErrAuthenticationFailed, err)
	}

	var claims idTokenClaims
	if err := tok.Claims(&claims); err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: parse claims: %v", model.ErrAuthenticationFailed, err)
	}
	id := mapClaims(claims)
	if id.UserID == "" {
		id.UserID = tok.Subject
	}
	if id.UserID == "" {
		return domainauth.Identity{}, fmt.Errorf("%w: token has no subject", model.ErrAuthenticationFailed)
	}
	id.ExpiresAt = tok.Expiry
	return id, nil
}

// idTokenClaims is a superset of standard OIDC and AD/ADFS claim shapes.
type idTokenClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	SamAccountName    string   `json:"samaccountname"`
	Email             string   `json:"email"`
	Mail              string   `json:"mail"`
	Groups            []string `json:"groups"`
	MemberOf          []string `json:"memberof"`
}

// mapClaims keys identities on the subject so job ownership survives username changes.
func mapClaims(c idTokenClaims) domainauth.Identity {
	groups := c.Groups
	if len(groups) == 0 {
		groups = c.MemberOf
	}
	return domainauth.Identity{
		UserID: firstNonEmpty(c.Sub, c.SamAccountName, c.PreferredUsername),
		Email:  firstNonEmpty(c.Email, c.Mail),
		Groups: groups,
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ ports.IdentityVerifier = (*Verifier)(nil)
