package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/fuzzysearch/config"
	httpx "github.com/target/fuzzysearch/internal/http"
)

// NewHTTPServer builds the API server around the router.
func NewHTTPServer(cfg config.HTTPConfig, obs config.ObservabilityMetricsConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	rs := httpx.RouterServices{
		Jobs:           services.Jobs,
		Search:         services.Search,
		Verifier:       services.Verifier,
		Metrics:        services.Metrics,
		HealthProbes:   services.HealthProbes,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Logger:         logger,
	}
	if services.Prometheus != nil {
		rs.MetricsHandler = services.Prometheus.Handler()
		rs.MetricsPath = obs.Path
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	// No WriteTimeout: push sessions are long-lived.
	return &http.Server{
		Addr:              addr,
		Handler:           httpx.NewRouter(rs),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs server until ctx ends, then shuts it down within timeout.
func ServeHTTP(ctx context.Context, server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
