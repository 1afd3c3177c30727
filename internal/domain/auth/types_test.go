package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Session{}.Expired(now), "zero expiry never expires")
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Session{ExpiresAt: now}.Expired(now))
	assert.True(t, Session{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}

func TestSessionIdentity(t *testing.T) {
	s := Session{ID: "sid", UserID: "u1", Email: "u1@example.com", Groups: []string{"g"}}
	id := s.Identity()

	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "u1@example.com", id.Email)
	assert.Equal(t, []string{"g"}, id.Groups)
	assert.False(t, id.Anonymous())
	assert.True(t, Identity{}.Anonymous())
}
