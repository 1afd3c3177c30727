package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/observability/metrics"
)

type verifierFunc func(ctx context.Context, credential string) (domainauth.Identity, error)

func (f verifierFunc) Verify(ctx context.Context, credential string) (domainauth.Identity, error) {
	return f(ctx, credential)
}

// sessionSink tracks the push session gauge.
type sessionSink struct {
	metrics.Nop
	mu       sync.Mutex
	sessions int
}

func (s *sessionSink) PushSessions(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions += delta
}

func (s *sessionSink) open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

func TestCorpusIDUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"abc"`, "abc", false},
		{`42`, "42", false},
		{`-3`, "-3", false},
		{`1e3`, "1000", false},
		{`2.0`, "2", false},
		{`1.5`, "", true},
		{`true`, "", true},
		{`null`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c corpusID
			err := json.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(c))
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"Bearer abc":       "abc",
		"bearer  abc ":     "abc",
		"Basic dXNlcjpwdw": "",
		"Bearer":           "",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(r), header)
	}
}

func TestRequireAuth_VerifierOutage(t *testing.T) {
	mw := RequireAuth(verifierFunc(func(context.Context, string) (domainauth.Identity, error) {
		return domainauth.Identity{}, context.DeadlineExceeded
	}))
	h := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/corpora", nil)
	r.Header.Set("Authorization", "Bearer x")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireAuth_PutsIdentityInContext(t *testing.T) {
	mw := RequireAuth(verifierFunc(func(_ context.Context, cred string) (domainauth.Identity, error) {
		return domainauth.Identity{UserID: "u-" + cred}, nil
	}))
	var got domainauth.Identity
	h := mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer tok")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "u-tok", got.UserID)
}

type requestRecorder struct {
	metrics.Nop
	mu     sync.Mutex
	routes []string
}

func (r *requestRecorder) HTTPRequest(route, method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route+" "+method+" "+http.StatusText(status))
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	rec := &requestRecorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Metrics(rec)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/other", nil))

	assert.Equal(t, []string{
		"GET /items/{id} GET I'm a teapot",
		"unmatched GET Not Found",
	}, rec.routes)
}
