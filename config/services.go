package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server (pull, push and corpus endpoints).
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the search worker pool.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the stale job reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, worker, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains search worker pool configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker slots.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"4"`

	// NotifyWaitWindow bounds a single wait on the queue's availability signal.
	NotifyWaitWindow time.Duration `env:"WORKER_NOTIFY_WAIT_WINDOW" envDefault:"30s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.Concurrency > 256 {
		w.Concurrency = 256
	}
	if w.NotifyWaitWindow < time.Second {
		w.NotifyWaitWindow = time.Second
	}
}

// ReaperConfig contains stale job reaper configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// StaleAfter is how long a RUNNING job may go without a progress write
	// before it is failed as INTERNAL. Queued jobs wait indefinitely.
	StaleAfter time.Duration `env:"REAPER_STALE_AFTER" envDefault:"30m"`

	// Retention is the maximum age of terminal jobs before deletion.
	Retention time.Duration `env:"REAPER_RETENTION" envDefault:"168h"` // 7 days

	// BatchSize is the maximum number of records to process per operation.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 10*time.Second {
		r.Interval = 10 * time.Second
	}
	if r.StaleAfter < time.Minute {
		r.StaleAfter = time.Minute
	}
	if r.Retention < time.Hour {
		r.Retention = time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
