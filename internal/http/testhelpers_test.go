package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/adapters/devauth"
	"github.com/target/fuzzysearch/internal/adapters/queue"
	"github.com/target/fuzzysearch/internal/data"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/service"
)

const testToken = "test-token"

// testEnv is a router backed by in-memory stores and a worker the test
// drives by hand.
type testEnv struct {
	srv     *httptest.Server
	store   *data.MemoryJobStore
	queue   *queue.Memory
	corpora *data.MemoryCorpusStore
	worker  *service.Worker
}

type envOption func(*RouterServices)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   data.NewMemoryJobStore(nil),
		queue:   queue.NewMemory(),
		corpora: data.NewMemoryCorpusStore(nil),
	}
	env.corpora.Put("1", "animals", "kitten sitting mitten")

	jobs := service.MustNewJobService(service.JobServiceOptions{Store: env.store, Queue: env.queue})
	search, err := service.NewSearchService(service.SearchServiceOptions{Corpora: env.corpora})
	require.NoError(t, err)
	env.worker, err = service.NewWorker(service.WorkerOptions{Store: env.store, Corpora: env.corpora})
	require.NoError(t, err)
	verifier, err := devauth.NewVerifier([]string{testToken + "=alice"})
	require.NoError(t, err)

	services := RouterServices{
		Jobs:         jobs,
		Search:       search,
		Verifier:     verifier,
		MaxBodyBytes: 1 << 20,
	}
	for _, o := range opts {
		o(&services)
	}

	env.srv = httptest.NewServer(NewRouter(services))
	t.Cleanup(env.srv.Close)
	return env
}

// runQueued executes every queued job to completion.
func (e *testEnv) runQueued(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for {
		d, err := e.queue.Reserve(ctx)
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return
		}
		require.NoError(t, err)
		require.NoError(t, e.worker.Execute(ctx, d.JobID))
		require.NoError(t, d.Ack(ctx))
	}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeMap(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m), string(b))
	return m
}
