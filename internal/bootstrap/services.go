package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/adapters/jobrunner"
	"github.com/target/fuzzysearch/internal/adapters/reaper"
	"github.com/target/fuzzysearch/internal/core"
	domainjob "github.com/target/fuzzysearch/internal/domain/job"
	httpx "github.com/target/fuzzysearch/internal/http"
	"github.com/target/fuzzysearch/internal/observability/metrics"
	"github.com/target/fuzzysearch/internal/ports"
	"github.com/target/fuzzysearch/internal/service"
)

// ServiceContainer holds all application services and the backends they share.
type ServiceContainer struct {
	Jobs     *service.JobService
	Search   *service.SearchService
	Worker   *service.Worker
	Store    JobStore
	Queue    core.JobQueue
	Corpora  core.CorpusRepository
	Verifier ports.IdentityVerifier

	Metrics metrics.Sink
	// Prometheus is nil when metrics are disabled.
	Prometheus *metrics.Prometheus

	HealthProbes []httpx.HealthProbe
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Infra  *Infrastructure
	Logger *slog.Logger
}

// NewServices builds backends from configuration and wires the services on top.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &ServiceContainer{Metrics: metrics.Nop{}, HealthProbes: deps.Infra.HealthProbes()}
	if cfg.Observability.Metrics.IsEnabled() {
		c.Prometheus = metrics.NewPrometheus(cfg.Observability.Metrics.Namespace)
		c.Metrics = c.Prometheus
	}

	var err error
	if c.Store, err = BuildJobStore(cfg.JobStore, deps.Infra, logger); err != nil {
		return nil, fmt.Errorf("build job store: %w", err)
	}
	if c.Queue, err = BuildQueue(cfg.Queue, deps.Infra, logger); err != nil {
		return nil, fmt.Errorf("build job queue: %w", err)
	}
	if c.Corpora, err = BuildCorpora(ctx, cfg.Corpus, deps.Infra); err != nil {
		return nil, errors.Join(fmt.Errorf("build corpus store: %w", err), c.Queue.Close())
	}
	if cfg.IsHTTPServerEnabled() {
		c.Verifier, err = BuildVerifier(ctx, AuthConfig{Auth: cfg.Auth, Infra: deps.Infra, Logger: logger})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("build identity verifier: %w", err), c.Queue.Close())
		}
	}

	if c.Jobs, err = service.NewJobService(service.JobServiceOptions{
		Store:   c.Store,
		Queue:   c.Queue,
		Logger:  logger,
		Metrics: c.Metrics,
	}); err != nil {
		return nil, fmt.Errorf("create job service: %w", err)
	}
	if c.Search, err = service.NewSearchService(service.SearchServiceOptions{
		Corpora: c.Corpora,
		Logger:  logger,
	}); err != nil {
		return nil, fmt.Errorf("create search service: %w", err)
	}
	if c.Worker, err = service.NewWorker(service.WorkerOptions{
		Store:   c.Store,
		Corpora: c.Corpora,
		Logger:  logger,
		Metrics: c.Metrics,
	}); err != nil {
		return nil, fmt.Errorf("create worker: %w", err)
	}

	logger.InfoContext(ctx, "services initialized",
		"job_store", cfg.JobStore.Backend,
		"queue", cfg.Queue.Backend,
		"corpus", cfg.Corpus.Backend,
		"auth", cfg.Auth.Mode,
		"metrics", c.Prometheus != nil,
	)
	return c, nil
}

// Close releases resources owned by the container.
func (c *ServiceContainer) Close() error {
	if c == nil || c.Queue == nil {
		return nil
	}
	return c.Queue.Close()
}

// ServiceOrchestrationConfig groups what RunServices needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable component bound to a service mode.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	app := cfg.Config
	svcs := cfg.Services
	return []backgroundService{
		{
			mode: config.ServiceModeHTTP,
			name: "http server",
			start: func(ctx context.Context) error {
				server := NewHTTPServer(app.HTTP, app.Observability.Metrics, svcs, logger)
				return ServeHTTP(ctx, server, app.HTTP.ShutdownTimeout, logger)
			},
		},
		{
			mode: config.ServiceModeWorker,
			name: "worker pool",
			start: func(ctx context.Context) error {
				return RunWorkerPool(ctx, WorkerPoolConfig{
					Queue:    svcs.Queue,
					Executor: svcs.Worker,
					Worker:   app.Worker,
					Metrics:  svcs.Metrics,
					Logger:   logger,
				})
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				runner, err := reaper.NewRunner(reaper.RunnerOptions{
					Store:   svcs.Store,
					Config:  app.Reaper,
					Logger:  logger,
					Metrics: svcs.Metrics,
				})
				if err != nil {
					return err
				}
				return runner.Run(ctx)
			},
		},
	}
}

// WorkerPoolConfig contains dependencies for the worker pool.
type WorkerPoolConfig struct {
	Queue    core.JobQueue
	Executor jobrunner.Executor
	Worker   config.WorkerConfig
	Metrics  metrics.Sink
	Logger   *slog.Logger
}

// RunWorkerPool recovers in-flight deliveries where the queue supports it and
// runs worker slots until ctx ends.
func RunWorkerPool(ctx context.Context, cfg WorkerPoolConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if rq, ok := cfg.Queue.(requeuer); ok {
		moved, err := rq.RequeueInFlight(ctx)
		if err != nil {
			return err
		}
		if moved > 0 {
			logger.WarnContext(ctx, "requeued in-flight jobs", "count", moved)
		}
	}

	notifier, err := domainjob.NewNotifier(domainjob.NotifierOptions{
		Waiter:     cfg.Queue,
		WaitWindow: cfg.Worker.NotifyWaitWindow,
	})
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	defer notifier.StopAll()

	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Queue:       cfg.Queue,
		Executor:    cfg.Executor,
		Notifier:    notifier,
		Logger:      logger,
		Metrics:     cfg.Metrics,
		Concurrency: cfg.Worker.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	return runner.Run(ctx)
}

// RunServices starts every enabled service and blocks until ctx ends or one
// service fails. A failure cancels the rest.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range buildBackgroundServices(cfg, logger) {
		if !enabled[svc.mode] {
			continue
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", svc.name, "mode", svc.mode)
			started := time.Now()
			err := svc.start(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(gctx, "service failed", "service", svc.name, "error", err)
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.Info(svc.name+" stopped", "uptime", time.Since(started).Round(time.Second))
			return nil
		})
	}
	return g.Wait()
}

// RunServicesWithShutdown runs services until SIGINT or SIGTERM.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}
