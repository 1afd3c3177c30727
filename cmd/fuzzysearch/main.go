package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.SetLogLevel(cfg.Observability.LogLevel)

	logStartupInfo(ctx, logger, &cfg)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	infra, err := bootstrap.Connect(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config: &cfg,
		Infra:  infra,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close job queue failed", "error", cerr)
		}
	}()

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting fuzzysearch service",
		"enabled_services", bootstrap.GetEnabledServices(cfg),
		"job_store", cfg.JobStore.Backend,
		"queue", cfg.Queue.Backend,
		"corpus", cfg.Corpus.Backend,
		"dev", cfg.IsDev,
	)
}
