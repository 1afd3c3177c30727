package auth

// Package auth contains domain-level types for identity and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Identity represents the verified principal behind a request credential.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., OIDC sub or session user)
	Email     string
	Groups    []string
	ExpiresAt time.Time // zero when the credential does not expire
}

// Anonymous reports whether the identity carries no user.
func (i Identity) Anonymous() bool { return i.UserID == "" }

// Session is the server-side record an external login service persists for
// an authenticated user. ID is the opaque credential clients present.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Groups    []string  `json:"groups,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Identity converts the session into the principal it represents.
func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Email: s.Email, Groups: s.Groups, ExpiresAt: s.ExpiresAt}
}
