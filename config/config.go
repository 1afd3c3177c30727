package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity verification configuration
//   - backends.go: Job store, queue and corpus storage selection
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: Service mode, worker and reaper configuration
type AppConfig struct {
	// IsDev controls development mode behavior (static tokens, verbose logging).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Identity verification configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Backend selection
	JobStore JobStoreConfig `envPrefix:"JOB_STORE_"`
	Queue    QueueConfig    `envPrefix:"QUEUE_"`
	Corpus   CorpusConfig   `envPrefix:"CORPUS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http,worker"`

	// Worker pool configuration
	Worker WorkerConfig

	// Reaper configuration
	Reaper ReaperConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Postgres.Sanitize()
	c.HTTP.Sanitize()
	c.JobStore.Sanitize()
	c.Queue.Sanitize()
	c.Corpus.Sanitize()
	c.Worker.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	return c.serviceEnabled(ServiceModeHTTP)
}

// IsWorkerEnabled returns true if the search worker pool is enabled.
func (c *AppConfig) IsWorkerEnabled() bool {
	return c.serviceEnabled(ServiceModeWorker)
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	return c.serviceEnabled(ServiceModeReaper)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// NeedsPostgres reports whether any configured backend is served by PostgreSQL.
func (c *AppConfig) NeedsPostgres() bool {
	return c.JobStore.Backend == JobStoreBackendPostgres || c.Corpus.Backend == CorpusBackendPostgres
}

// NeedsRedis reports whether any configured backend is served by Redis.
func (c *AppConfig) NeedsRedis() bool {
	return c.JobStore.Backend == JobStoreBackendRedis ||
		c.Queue.Backend == QueueBackendRedis ||
		c.Auth.Mode == AuthModeSession
}
