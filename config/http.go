package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// AllowedOrigins restricts websocket handshakes to the listed origins.
	// Empty accepts any origin.
	AllowedOrigins []string `env:"HTTP_WS_ALLOWED_ORIGINS" envDefault:""`

	// MaxBodyBytes caps request bodies, including corpus uploads.
	MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"10485760"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.MaxBodyBytes < 1024 {
		h.MaxBodyBytes = 1024
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
