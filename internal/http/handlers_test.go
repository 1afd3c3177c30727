package httpx

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_RequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "wrong-token"} {
		resp, body := env.do(t, http.MethodGet, "/api/corpora", "", token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "authentication_required", decodeMap(t, body)["error"])
		assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
	}

	resp, _ := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health check is public")
}

func TestAPI_SubmitAndPoll(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/search/async",
		`{"word":"kitten","algorithm":"levenshtein","corpus_id":1}`, testToken)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	taskID, _ := decodeMap(t, body)["task_id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, "/api/search/tasks/"+taskID, resp.Header.Get("Location"))

	resp, body = env.do(t, http.MethodGet, "/api/search/tasks/"+taskID, "", testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"task_id":"`+taskID+`","state":"PENDING"}`, string(body))

	rec, err := env.store.Get(t.Context(), taskID)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Params.CorpusID, "integer corpus ids are kept in decimal")
	assert.Equal(t, "alice", rec.SubmittedBy)

	env.runQueued(t)

	resp, body = env.do(t, http.MethodGet, "/api/search/tasks/"+taskID, "", testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeMap(t, body)
	assert.Equal(t, "SUCCEEDED", st["state"])
	assert.InDelta(t, 100, st["progress"], 0)
	assert.Equal(t, "3/3", st["progress_label"])
	result, ok := st["result"].(map[string]any)
	require.True(t, ok)
	results, ok := result["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	assert.Equal(t, map[string]any{"word": "kitten", "distance": float64(0)}, results[0])
}

func TestAPI_SubmitRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		status  int
		errCode string
	}{
		{"missing word", `{"algorithm":"ngram","corpus_id":"1"}`, http.StatusBadRequest, "validation"},
		{"unknown field", `{"word":"a","algorithm":"ngram","corpus_id":"1","x":1}`, http.StatusBadRequest, "invalid_json"},
		{"fractional corpus id", `{"word":"a","algorithm":"ngram","corpus_id":1.5}`, http.StatusBadRequest, "invalid_json"},
		{"not json", `nope`, http.StatusBadRequest, "invalid_json"},
		{"empty body", ``, http.StatusBadRequest, "empty_body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/search/async", tt.body, testToken)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.errCode, decodeMap(t, body)["error"])
		})
	}
	assert.Zero(t, env.queue.Len())
}

func TestAPI_SubmitAcceptsUnknownAlgorithm(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/search/async",
		`{"word":"kitten","algorithm":"soundex","corpus_id":"1"}`, testToken)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	taskID, _ := decodeMap(t, body)["task_id"].(string)

	env.runQueued(t)

	_, body = env.do(t, http.MethodGet, "/api/search/tasks/"+taskID, "", testToken)
	st := decodeMap(t, body)
	assert.Equal(t, "FAILED", st["state"])
	assert.Equal(t, "UNKNOWN_ALGORITHM", st["error"])
}

func TestAPI_UnknownTask(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/search/tasks/nope", "", testToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "job_not_found", decodeMap(t, body)["error"])
}

func TestAPI_SyncSearch(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/search",
		`{"word":"sitting","algorithm":"EDIT_DISTANCE","corpus_id":"1"}`, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decodeMap(t, body)
	assert.Contains(t, res, "execution_time")
	results, ok := res["results"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"word": "sitting", "distance": float64(0)}, results[0])

	resp, body = env.do(t, http.MethodPost, "/api/search",
		`{"word":"sitting","algorithm":"soundex","corpus_id":"1"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_algorithm", decodeMap(t, body)["error"])

	resp, body = env.do(t, http.MethodPost, "/api/search",
		`{"word":"sitting","algorithm":"ngram","corpus_id":"42"}`, testToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "corpus_not_found", decodeMap(t, body)["error"])
}

func TestAPI_Corpora(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/corpora", `{"name":"colours","text":"red green blue"}`, testToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decodeMap(t, body)
	assert.Equal(t, "2", created["id"])
	assert.Equal(t, "colours", created["name"])
	assert.NotContains(t, created, "text")

	resp, body = env.do(t, http.MethodPost, "/api/corpora", `{"name":"empty","text":"  "}`, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decodeMap(t, body)["error"])

	resp, body = env.do(t, http.MethodGet, "/api/corpora?limit=1&offset=1", "", testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"id":"2"`)
	assert.NotContains(t, string(body), `"id":"1"`)
}

func TestAPI_BodyLimit(t *testing.T) {
	env := newTestEnv(t, func(s *RouterServices) { s.MaxBodyBytes = 64 })

	big := `{"name":"big","text":"` + strings.Repeat("a", 128) + `"}`
	resp, _ := env.do(t, http.MethodPost, "/api/corpora", big, testToken)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, func(s *RouterServices) {
		s.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
	})

	resp, body := env.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}
