package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/fuzzysearch/internal/observability/metrics"
	"github.com/target/fuzzysearch/internal/ports"
	"github.com/target/fuzzysearch/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs     *service.JobService
	Search   *service.SearchService
	Verifier ports.IdentityVerifier

	// Optional: metrics sink for request and push session metrics.
	Metrics metrics.Sink
	// Optional: exposition handler mounted at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string
	// Optional: dependency checks reported by /healthz.
	HealthProbes []HealthProbe

	AllowedOrigins []string
	MaxBodyBytes   int64
	Logger         *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := services.Metrics
	if sink == nil {
		sink = metrics.Nop{}
	}

	mux := http.NewServeMux()
	auth := RequireAuth(services.Verifier)

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	searchHandlers := &SearchHandlers{Svc: services.Search}
	push := &PushHandler{
		Jobs:           services.Jobs,
		Verifier:       services.Verifier,
		Metrics:        sink,
		Logger:         logger,
		AllowedOrigins: services.AllowedOrigins,
	}

	registerJobRoutes(mux, jobHandlers, auth)
	registerSearchRoutes(mux, searchHandlers, auth)
	mux.Handle("GET /ws", push)
	health := &HealthHandler{Probes: services.HealthProbes}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.MetricsHandler != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.MetricsHandler)
	}

	var h http.Handler = mux
	if services.MaxBodyBytes > 0 {
		h = LimitBody(services.MaxBodyBytes)(h)
	}
	h = Metrics(sink)(h)
	h = Recover(logger)(h)
	return Logging(logger)(h)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /api/search/async", auth(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /api/search/tasks/{id}", auth(http.HandlerFunc(h.GetStatus)))
}

func registerSearchRoutes(mux *http.ServeMux, h *SearchHandlers, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /api/search", auth(http.HandlerFunc(h.Search)))
	mux.Handle("POST /api/corpora", auth(http.HandlerFunc(h.CreateCorpus)))
	mux.Handle("GET /api/corpora", auth(http.HandlerFunc(h.ListCorpora)))
}
