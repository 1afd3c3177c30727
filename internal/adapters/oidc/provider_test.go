package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/domain/model"
)

const (
	testIssuer   = "https://issuer.example.com"
	testClientID = "fuzzysearch"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	obj, err := signer.Sign(payload)
	require.NoError(t, err)
	raw, err := obj.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func baseClaims() map[string]any {
	now := time.Now()
	return map[string]any{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "user-42",
		"email": "user@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestVerifier_Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v := NewStaticVerifier(testIssuer, testClientID, &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		claims := baseClaims()
		claims["groups"] = []string{"searchers"}
		id, err := v.Verify(ctx, signToken(t, key, claims))
		require.NoError(t, err)
		assert.Equal(t, "user-42", id.UserID)
		assert.Equal(t, "user@example.com", id.Email)
		assert.Equal(t, []string{"searchers"}, id.Groups)
		assert.False(t, id.ExpiresAt.IsZero())
	})

	tests := []struct {
		name  string
		token func() string
	}{
		{name: "empty", token: func() string { return "" }},
		{name: "garbage", token: func() string { return "not.a.jwt" }},
		{name: "wrong key", token: func() string { return signToken(t, other, baseClaims()) }},
		{name: "wrong audience", token: func() string {
			c := baseClaims()
			c["aud"] = "someone-else"
			return signToken(t, key, c)
		}},
		{name: "expired", token: func() string {
			c := baseClaims()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signToken(t, key, c)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(ctx, tt.token())
			assert.ErrorIs(t, err, model.ErrAuthenticationFailed)
		})
	}
}

func TestMapClaims(t *testing.T) {
	id := mapClaims(idTokenClaims{SamAccountName: "jdoe", Mail: "jdoe@corp", MemberOf: []string{"g"}})
	assert.Equal(t, "jdoe", id.UserID)
	assert.Equal(t, "jdoe@corp", id.Email)
	assert.Equal(t, []string{"g"}, id.Groups)

	id = mapClaims(idTokenClaims{Sub: "s", PreferredUsername: "p", Email: "e", Mail: "m"})
	assert.Equal(t, "s", id.UserID)
	assert.Equal(t, "e", id.Email)
}

func TestNewVerifier_Discovery(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/jwks",
		})
	}))
	defer srv.Close()

	v, err := NewVerifier(context.Background(), VerifierConfig{
		ClientID: testClientID,
		Issuer:   srv.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestNewVerifier_ValidationErrors(t *testing.T) {
	_, err := NewVerifier(context.Background(), VerifierConfig{Issuer: "http://x"})
	assert.ErrorContains(t, err, "client ID is required")
	_, err = NewVerifier(context.Background(), VerifierConfig{ClientID: "c"})
	assert.ErrorContains(t, err, "issuer is required")
}
