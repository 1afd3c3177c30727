package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records observations into a private registry and serves them
// in the text exposition format.
type Prometheus struct {
	registry     *prometheus.Registry
	transitions  *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	pushSessions prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewPrometheus registers collectors under namespace.
func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Search job lifecycle transitions by outcome.",
		}, []string{"transition", "result", "error_class"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent in a search job lifecycle transition.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"transition", "result"}),
		pushSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_sessions",
			Help:      "Open WebSocket status sessions.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	p.registry.MustRegister(
		p.transitions,
		p.durations,
		p.pushSessions,
		p.httpRequests,
		p.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) JobTransition(transition, result, errorClass string) {
	p.transitions.WithLabelValues(transition, result, errorClass).Inc()
}

func (p *Prometheus) JobDuration(transition, result string, d time.Duration) {
	p.durations.WithLabelValues(transition, result).Observe(d.Seconds())
}

func (p *Prometheus) PushSessions(delta int) {
	p.pushSessions.Add(float64(delta))
}

func (p *Prometheus) HTTPRequest(route, method string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	p.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

var _ Sink = (*Prometheus)(nil)
