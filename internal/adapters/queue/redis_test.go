package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/testutil"
)

func TestRedis_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	runQueueContract(t, NewRedis(client, testutil.UniquePrefix("queue"), "worker-1"))
}

func TestRedis_WaitWakesOnEnqueue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	q := NewRedis(client, testutil.UniquePrefix("queue"), "worker-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- q.WaitForNotification(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, "job-1"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("waiter was not woken by enqueue")
	}
}

func TestRedis_RequeueInFlight(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	q := NewRedis(client, testutil.UniquePrefix("queue"), "worker-1")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "orphan"))
	_, err := q.Reserve(ctx)
	require.NoError(t, err)

	n, err := q.RequeueInFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orphan", d.JobID)
}

func TestRedis_RequeueInFlightLeavesOtherConsumers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	name := testutil.UniquePrefix("queue")
	busy := NewRedis(client, name, "worker-a")
	restarted := NewRedis(client, name, "worker-b")
	ctx := context.Background()

	require.NoError(t, busy.Enqueue(ctx, "in-progress"))
	d, err := busy.Reserve(ctx)
	require.NoError(t, err)
	require.Equal(t, "in-progress", d.JobID)

	n, err := restarted.RequeueInFlight(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = restarted.Reserve(ctx)
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable, "a live consumer's delivery must not be requeued")

	require.NoError(t, d.Ack(ctx))
	n, err = busy.RequeueInFlight(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
