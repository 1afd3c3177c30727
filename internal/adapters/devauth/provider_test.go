package devauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/domain/model"
)

func TestNewVerifier(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		wantErr bool
	}{
		{name: "pairs", pairs: []string{"a=alice", " b = bob "}},
		{name: "bare token", pairs: []string{"solo"}},
		{name: "empty", pairs: []string{"", "  "}, wantErr: true},
		{name: "missing user", pairs: []string{"tok="}, wantErr: true},
		{name: "missing token", pairs: []string{"=user"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	v, err := NewVerifier([]string{"a=alice", "b = bob", "solo"})
	require.NoError(t, err)
	ctx := context.Background()

	id, err := v.Verify(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "bob", id.UserID)
	assert.True(t, id.ExpiresAt.IsZero())

	id, err = v.Verify(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, "solo", id.UserID)

	for _, bad := range []string{"", "c", "alice", "a "} {
		_, err := v.Verify(ctx, bad)
		assert.ErrorIs(t, err, model.ErrAuthenticationFailed, "credential %q", bad)
	}
}
