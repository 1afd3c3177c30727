package config

import (
	"fmt"
	"strings"
)

// AuthMode selects how request credentials are verified.
type AuthMode string

const (
	// AuthModeStatic verifies credentials against a fixed token table (development only).
	AuthModeStatic AuthMode = "static"
	// AuthModeSession verifies credentials as session ids stored in Redis.
	AuthModeSession AuthMode = "session"
	// AuthModeOIDC verifies credentials as OIDC ID tokens.
	AuthModeOIDC AuthMode = "oidc"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "static", "session", "oidc":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: static, session, oidc)", v)
	}
}

// OIDCConfig contains OpenID Connect configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"fuzzysearch"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	Issuer       string `env:"ISSUER"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
}

// StaticAuthConfig lists accepted bearer tokens as "token=user" pairs.
type StaticAuthConfig struct {
	Tokens []string `env:"TOKENS" envDefault:"dev-token=dev-user" envSeparator:";"`
}

// AuthConfig groups all identity-related configuration.
type AuthConfig struct {
	// Mode determines which identity verifier to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"static"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// Static configuration (used when Mode=static).
	Static StaticAuthConfig `envPrefix:"STATIC_AUTH_"`

	// SessionPrefix is the Redis key prefix for sessions (used when Mode=session).
	SessionPrefix string `env:"AUTH_SESSION_PREFIX" envDefault:"session:"`
}
