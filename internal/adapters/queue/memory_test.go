package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// runQueueContract exercises behaviour shared by every JobQueue.
func runQueueContract(t *testing.T, q core.JobQueue) {
	t.Helper()
	ctx := context.Background()

	_, err := q.Reserve(ctx)
	require.ErrorIs(t, err, model.ErrNoJobsAvailable)

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, q.WaitForNotification(waitCtx))

	first, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.JobID)
	require.NoError(t, first.Nack(ctx))

	again, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again.JobID, "nacked delivery is redelivered first")
	require.NoError(t, again.Ack(ctx))

	second, err := q.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", second.JobID)
	require.NoError(t, second.Ack(ctx))

	_, err = q.Reserve(ctx)
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)
}

func TestMemory_Contract(t *testing.T) {
	q := NewMemory()
	defer q.Close()
	runQueueContract(t, q)
}

func TestMemory_WaitWakesOnEnqueue(t *testing.T) {
	q := NewMemory()
	defer q.Close()

	done := make(chan error, 1)
	go func() { done <- q.WaitForNotification(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), "x"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by enqueue")
	}
}

func TestMemory_WaitHonoursContext(t *testing.T) {
	q := NewMemory()
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.WaitForNotification(ctx), context.DeadlineExceeded)
}

func TestMemory_Close(t *testing.T) {
	q := NewMemory()
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(context.Background(), "x"), ErrClosed)
	_, err := q.Reserve(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, q.WaitForNotification(context.Background()), ErrClosed)
}
