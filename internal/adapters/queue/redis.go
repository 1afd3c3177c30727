package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// Redis keeps pending ids in a list and moves reserved ids to a per-consumer
// processing list until they are acknowledged. Enqueue publishes on a wake-up
// channel so idle workers do not have to poll.
//
// Keys share the {name} hash tag so LMOVE stays single-slot on Redis Cluster.
type Redis struct {
	client     redis.UniversalClient
	pending    string
	processing string
	channel    string
}

// NewRedis creates a queue rooted at the given key name. consumer names the
// worker process; it must be unique among live workers and stable across a
// restart so the restarted process can reclaim its own deliveries.
func NewRedis(client redis.UniversalClient, name, consumer string) *Redis {
	root := "{" + name + "}"
	return &Redis{
		client:     client,
		pending:    root + ":pending",
		processing: root + ":processing:" + consumer,
		channel:    root + ":wakeup",
	}
}

func (q *Redis) Enqueue(ctx context.Context, jobID string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, q.pending, jobID)
		pipe.Publish(ctx, q.channel, jobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

func (q *Redis) Reserve(ctx context.Context) (*core.Delivery, error) {
	id, err := q.client.LMove(ctx, q.pending, q.processing, "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNoJobsAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("reserve job: %w", err)
	}

	return &core.Delivery{
		JobID: id,
		Ack: func(ctx context.Context) error {
			return q.client.LRem(ctx, q.processing, 1, id).Err()
		},
		Nack: func(ctx context.Context) error {
			_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LRem(ctx, q.processing, 1, id)
				pipe.RPush(ctx, q.pending, id)
				pipe.Publish(ctx, q.channel, id)
				return nil
			})
			return err
		},
	}, nil
}

// WaitForNotification subscribes before checking the list so an Enqueue that
// lands between the two is not missed.
func (q *Redis) WaitForNotification(ctx context.Context) error {
	sub := q.client.Subscribe(ctx, q.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", q.channel, err)
	}

	n, err := q.client.LLen(ctx, q.pending).Result()
	if err != nil {
		return fmt.Errorf("queue length: %w", err)
	}
	if n > 0 {
		return nil
	}

	select {
	case _, ok := <-sub.Channel():
		if !ok {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequeueInFlight moves every id left in this consumer's processing list back
// to the pending list. Run it once at worker start-up to recover deliveries
// the previous run of the same consumer held when it died. Other consumers'
// in-flight deliveries are untouched.
func (q *Redis) RequeueInFlight(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.LMove(ctx, q.processing, q.pending, "RIGHT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("requeue in-flight: %w", err)
		}
		moved++
	}
}

// Close is a no-op; the client is owned by the caller.
func (q *Redis) Close() error { return nil }

var _ core.JobQueue = (*Redis)(nil)
