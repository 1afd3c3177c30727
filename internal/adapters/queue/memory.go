package queue

import (
	"context"
	"sync"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// Memory is a FIFO queue held in process memory. Reserved ids are removed
// immediately; Nack puts them back at the head.
type Memory struct {
	mu     sync.Mutex
	items  []string
	closed bool
	signal chan struct{}
	done   chan struct{}
}

// NewMemory creates an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (q *Memory) Enqueue(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, jobID)
	q.notify()
	return nil
}

func (q *Memory) Reserve(_ context.Context) (*core.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if len(q.items) == 0 {
		return nil, model.ErrNoJobsAvailable
	}
	id := q.items[0]
	q.items = q.items[1:]

	return &core.Delivery{
		JobID: id,
		Ack:   func(context.Context) error { return nil },
		Nack: func(context.Context) error {
			q.mu.Lock()
			defer q.mu.Unlock()
			if q.closed {
				return ErrClosed
			}
			q.items = append([]string{id}, q.items...)
			q.notify()
			return nil
		},
	}, nil
}

func (q *Memory) WaitForNotification(ctx context.Context) error {
	q.mu.Lock()
	pending := len(q.items)
	q.mu.Unlock()
	if pending > 0 {
		return nil
	}

	select {
	case <-q.signal:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of queued ids.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

// notify must be called with q.mu held.
func (q *Memory) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

var _ core.JobQueue = (*Memory)(nil)
