package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/domain/model"
)

func TestEmitJobLifecycle(t *testing.T) {
	p := NewPrometheus("test")

	EmitJobLifecycle(p, JobMetric{Transition: TransitionExecute, Result: ResultSuccess, Duration: 20 * time.Millisecond})
	EmitJobLifecycle(p, JobMetric{
		Transition: TransitionExecute,
		Result:     ResultError,
		Err:        fmt.Errorf("lookup: %w", model.ErrCorpusNotFound),
	})
	// Errors on non-error results are not classified.
	EmitJobLifecycle(p, JobMetric{Transition: TransitionReserve, Result: ResultNoop, Err: model.ErrNoJobsAvailable})
	EmitJobLifecycle(nil, JobMetric{Transition: TransitionSubmit, Result: ResultSuccess})

	assert.Equal(t, 1.0, testutil.ToFloat64(p.transitions.WithLabelValues(TransitionExecute, ResultSuccess, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.transitions.WithLabelValues(TransitionExecute, ResultError, "corpus_not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.transitions.WithLabelValues(TransitionReserve, ResultNoop, "")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.durations))
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus("fz")
	p.PushSessions(2)
	p.PushSessions(-1)
	p.HTTPRequest("GET /healthz", "GET", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fz_push_sessions 1")
	assert.Contains(t, string(body), `fz_http_requests_total{code="200",method="GET",route="GET /healthz"} 1`)
}
