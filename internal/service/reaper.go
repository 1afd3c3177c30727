package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/observability/metrics"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Store   core.JobReaperStore // Required: reaper store
	Config  config.ReaperConfig // Required: reaper configuration
	Logger  *slog.Logger        // Optional: structured logger
	Metrics metrics.Sink        // Optional: metrics sink
	Clock   clock.Clock         // Optional: defaults to wall clock
}

// ReaperService applies the retention policy to the Job Store.
//
// Each pass:
// - fails RUNNING jobs not updated within StaleAfter as INTERNAL,
// - deletes terminal jobs completed more than Retention ago.
type ReaperService struct {
	store   core.JobReaperStore
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics metrics.Sink
	clock   clock.Clock
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobReaperStore is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"stale_after", opts.Config.StaleAfter,
		"retention", opts.Config.Retention,
	)

	s := &ReaperService{
		store:   opts.Store,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	return s, nil
}

// Run performs a pass immediately (after a small jitter) and then every
// Interval until ctx is cancelled. It returns nil on cancellation.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	if !s.sleep(ctx, s.jitter()) {
		return s.stopped(ctx)
	}
	for {
		if err := s.RunOnce(ctx); err != nil && !isContextCancellation(err) {
			s.logger.ErrorContext(ctx, "reaper pass failed", "error", err)
		}
		if !s.sleep(ctx, s.config.Interval) {
			return s.stopped(ctx)
		}
	}
}

func (s *ReaperService) stopped(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// sleep waits for d on the service clock. It reports false if ctx ended first.
func (s *ReaperService) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}

// jitter returns a random delay up to 10% of the interval so replicas that
// start together do not reap in lockstep.
func (s *ReaperService) jitter() time.Duration {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
}

// RunOnce performs a single reaper pass.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := s.clock.Now()
	now := start.UTC()

	failed, failErr := s.drain(ctx, func(ctx context.Context) (int, error) {
		return s.store.FailStale(ctx, now.Add(-s.config.StaleAfter), s.config.BatchSize)
	})
	if failed > 0 {
		s.logger.InfoContext(ctx, "failed stale jobs", "count", failed, "stale_after", s.config.StaleAfter)
	}

	deleted, delErr := s.drain(ctx, func(ctx context.Context) (int, error) {
		return s.store.DeleteCompletedBefore(ctx, now.Add(-s.config.Retention), s.config.BatchSize)
	})
	if deleted > 0 {
		s.logger.InfoContext(ctx, "deleted expired jobs", "count", deleted, "retention", s.config.Retention)
	}

	var errs []error
	if failErr != nil {
		errs = append(errs, fmt.Errorf("fail stale jobs: %w", failErr))
	}
	if delErr != nil {
		errs = append(errs, fmt.Errorf("delete expired jobs: %w", delErr))
	}
	err := errors.Join(errs...)

	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case failed == 0 && deleted == 0:
		result = metrics.ResultNoop
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionReap,
		Result:     result,
		Duration:   s.clock.Now().Sub(start),
		Err:        err,
	})
	return err
}

// drain repeats a batched operation until a batch affects nothing.
func (s *ReaperService) drain(ctx context.Context, batch func(context.Context) (int, error)) (int, error) {
	total := 0
	for {
		n, err := batch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 || n < s.config.BatchSize {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
