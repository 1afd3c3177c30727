// Package reaper provides adapters for running the job reaper.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juju/clock"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/observability/metrics"
	"github.com/target/fuzzysearch/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Store   core.JobReaperStore
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics metrics.Sink
	Clock   clock.Clock
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Store == nil {
		return nil, errors.New("reaper store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Store:   opts.Store,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
		Clock:   opts.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
