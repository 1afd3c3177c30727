// Package job holds worker-side coordination primitives that sit between the
// job queue and the worker pool.
package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Waiter blocks until the queue signals that work may be available, or ctx ends.
type Waiter interface {
	WaitForNotification(ctx context.Context) error
}

// Notifier fans queue availability signals out to idle worker slots.
type Notifier interface {
	Subscribe() (func(), <-chan struct{})
	StopAll()
}

// NotifierOptions configure the behaviour of the default notifier implementation.
type NotifierOptions struct {
	Waiter     Waiter
	WaitWindow time.Duration
	Backoff    time.Duration
	// MinGap is the shortest interval between two wake-ups.
	MinGap time.Duration
}

// DefaultNotifier runs a single listener against the waiter while at least
// one subscriber exists. Each subscriber channel has a buffer of one, so
// signals coalesce for slots that are busy.
type DefaultNotifier struct {
	waiter     Waiter
	waitWindow time.Duration
	backoff    time.Duration
	minGap     time.Duration

	mu       sync.Mutex
	subs     map[chan struct{}]struct{}
	stopLoop context.CancelFunc
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}

	waitWindow := opts.WaitWindow
	if waitWindow <= 0 {
		waitWindow = 30 * time.Second
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	minGap := opts.MinGap
	if minGap <= 0 {
		minGap = 50 * time.Millisecond
	}

	return &DefaultNotifier{
		waiter:     opts.Waiter,
		waitWindow: waitWindow,
		backoff:    backoff,
		minGap:     minGap,
		subs:       make(map[chan struct{}]struct{}),
	}, nil
}

func (n *DefaultNotifier) Subscribe() (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopLoop == nil {
		ctx, cancel := context.WithCancel(context.Background())
		n.stopLoop = cancel
		go n.listenLoop(ctx)
	}

	ch := make(chan struct{}, 1)
	n.subs[ch] = struct{}{}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if _, ok := n.subs[ch]; !ok {
				return
			}
			delete(n.subs, ch)
			drainAndClose(ch)
			if len(n.subs) == 0 && n.stopLoop != nil {
				n.stopLoop()
				n.stopLoop = nil
			}
		})
	}
	return unsub, ch
}

func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopLoop != nil {
		n.stopLoop()
		n.stopLoop = nil
	}
	for ch := range n.subs {
		drainAndClose(ch)
		delete(n.subs, ch)
	}
}

// Broadcast wakes every subscriber without waiting for the queue.
func (n *DefaultNotifier) Broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *DefaultNotifier) listenLoop(ctx context.Context) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, n.waitWindow)
		err := n.waiter.WaitForNotification(waitCtx)
		cancel()

		if ctx.Err() != nil {
			return
		}
		// A timed-out window still wakes slots so they re-poll the queue.
		n.Broadcast()

		pause := n.minGap
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			pause = n.backoff
		}
		if !sleepCtx(ctx, pause) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// drainAndClose removes any buffered notification before closing so receivers
// observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)
