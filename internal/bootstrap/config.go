package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/fuzzysearch/config"
)

var logLevel = new(slog.LevelVar)

// InitLogger initializes the structured logger at info level.
// SetLogLevel adjusts it once configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// SetLogLevel applies one of debug, info, warn, error. Unknown values keep info.
func SetLogLevel(level string) {
	switch level {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig checks that at least one service is enabled and that
// the selected backends can serve the enabled services.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	// In-process backends are invisible to other processes, so a split
	// deployment needs shared storage and a shared queue.
	if !services[config.ServiceModeHTTP] || !services[config.ServiceModeWorker] {
		if cfg.JobStore.Backend == config.JobStoreBackendMemory {
			return errors.New("memory job store requires http and worker in the same process")
		}
		if cfg.Queue.Backend == config.QueueBackendMemory {
			return errors.New("memory queue requires http and worker in the same process")
		}
	}
	if cfg.Auth.Mode == config.AuthModeStatic && !cfg.IsDev && services[config.ServiceModeHTTP] {
		slog.Default().Warn("static token authentication is intended for development only")
	}
	return nil
}

// GetEnabledServices returns a list of enabled service names.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabled := make([]string, 0, len(services))
	for _, mode := range config.ValidServiceModes() {
		if services[mode] {
			enabled = append(enabled, string(mode))
		}
	}
	return enabled
}
