// Package jobrunner runs the search worker pool: a fixed number of slots that
// reserve job ids from the queue and hand them to the worker.
package jobrunner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/fuzzysearch/internal/core"
	domainjob "github.com/target/fuzzysearch/internal/domain/job"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/observability/metrics"
)

// Executor runs one job to completion. A non-nil error means the job was not
// started and the delivery should be returned to the queue.
type Executor interface {
	Execute(ctx context.Context, jobID string) error
}

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	Queue    core.JobQueue
	Executor Executor
	Notifier domainjob.Notifier
	Logger   *slog.Logger
	Metrics  metrics.Sink

	// Concurrency is the number of worker slots; defaults to 1.
	Concurrency int
	// RetryBackoff is the pause after a queue error; defaults to 1s.
	RetryBackoff time.Duration
}

// Runner pulls job ids from the queue and executes them.
type Runner struct {
	queue    core.JobQueue
	exec     Executor
	notifier domainjob.Notifier
	logger   *slog.Logger
	metrics  metrics.Sink
	workers  int
	backoff  time.Duration
}

// NewRunner constructs a job runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("queue is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("notifier is required")
	}

	r := &Runner{
		queue:    opts.Queue,
		exec:     opts.Executor,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		workers:  opts.Concurrency,
		backoff:  opts.RetryBackoff,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "job_runner")
	if r.metrics == nil {
		r.metrics = metrics.Nop{}
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	if r.backoff <= 0 {
		r.backoff = time.Second
	}
	return r, nil
}

// Run starts the worker slots and processes jobs until ctx is cancelled.
// A job that is executing when ctx ends is allowed to finish.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner", "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	for slot := range r.workers {
		unsub, notify := r.notifier.Subscribe()
		g.Go(func() error {
			defer unsub()
			return r.slotLoop(gctx, slot, notify)
		})
	}

	err := g.Wait()
	r.logger.InfoContext(ctx, "job runner stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runner) slotLoop(ctx context.Context, slot int, notify <-chan struct{}) error {
	log := r.logger.With("slot", slot)
	for ctx.Err() == nil {
		start := time.Now()
		d, err := r.queue.Reserve(ctx)
		switch {
		case err == nil:
			r.emitReserve(metrics.ResultSuccess, start, nil)
			r.process(ctx, log, d)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !waitForNotify(ctx, notify) {
				log.DebugContext(ctx, "slot stopping")
				return ctx.Err()
			}
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.emitReserve(metrics.ResultError, start, err)
			log.ErrorContext(ctx, "reserve failed", "error", err)
			if !sleep(ctx, r.backoff) {
				return ctx.Err()
			}
		}
	}
	return ctx.Err()
}

// process executes one delivery. Ack and Nack use a context detached from
// shutdown so a finished job is never redelivered because the pool stopped.
func (r *Runner) process(ctx context.Context, log *slog.Logger, d *core.Delivery) {
	ackCtx := context.WithoutCancel(ctx)
	if err := r.exec.Execute(ctx, d.JobID); err != nil {
		log.WarnContext(ctx, "job not started, returning to queue", "job_id", d.JobID, "error", err)
		if nerr := d.Nack(ackCtx); nerr != nil {
			log.ErrorContext(ctx, "nack failed", "job_id", d.JobID, "error", nerr)
		}
		return
	}
	if err := d.Ack(ackCtx); err != nil {
		log.ErrorContext(ctx, "ack failed", "job_id", d.JobID, "error", err)
	}
}

func (r *Runner) emitReserve(result string, start time.Time, err error) {
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		Transition: metrics.TransitionReserve,
		Result:     result,
		Duration:   time.Since(start),
		Err:        err,
	})
}

func waitForNotify(ctx context.Context, notify <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-notify:
		return ok
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
