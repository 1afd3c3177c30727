package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/data"
)

func TestNewRunner_RequiresStore(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: config.ReaperConfig{Interval: time.Minute}})
	assert.ErrorContains(t, err, "reaper store is required")
}

func TestNewRunner_RejectsBadInterval(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Store: data.NewMemoryJobStore(nil)})
	assert.ErrorContains(t, err, "wire reaper service")
}

func TestRunner_StopsOnCancel(t *testing.T) {
	r, err := NewRunner(RunnerOptions{
		Store:  data.NewMemoryJobStore(nil),
		Config: config.ReaperConfig{Interval: time.Hour, StaleAfter: time.Hour, Retention: time.Hour, BatchSize: 10},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
