package config

import "strings"

// ObservabilityConfig groups configuration that controls metrics and logging.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
}

// ObservabilityMetricsConfig controls Prometheus metric collection.
type ObservabilityMetricsConfig struct {
	Enabled   bool   `env:"OBSERVABILITY_METRICS_ENABLED"   envDefault:"true"`
	Namespace string `env:"OBSERVABILITY_METRICS_NAMESPACE" envDefault:"fuzzysearch"`
	Path      string `env:"OBSERVABILITY_METRICS_PATH"      envDefault:"/metrics"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.Namespace = strings.TrimSpace(c.Namespace)
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
		c.Path = "/metrics"
	}
}

// IsEnabled returns true when metrics collection is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled
}
