package client

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/adapters/devauth"
	"github.com/target/fuzzysearch/internal/adapters/jobrunner"
	"github.com/target/fuzzysearch/internal/adapters/queue"
	"github.com/target/fuzzysearch/internal/data"
	domainjob "github.com/target/fuzzysearch/internal/domain/job"
	"github.com/target/fuzzysearch/internal/domain/model"
	httpx "github.com/target/fuzzysearch/internal/http"
	"github.com/target/fuzzysearch/internal/service"
)

// startServer runs the API and a worker pool over in-memory backends.
func startServer(t *testing.T) *Client {
	t.Helper()

	store := data.NewMemoryJobStore(nil)
	q := queue.NewMemory()
	corpora := data.NewMemoryCorpusStore(nil)

	jobs := service.MustNewJobService(service.JobServiceOptions{Store: store, Queue: q})
	search, err := service.NewSearchService(service.SearchServiceOptions{Corpora: corpora})
	require.NoError(t, err)
	worker, err := service.NewWorker(service.WorkerOptions{Store: store, Corpora: corpora})
	require.NoError(t, err)
	verifier, err := devauth.NewVerifier([]string{"secret=alice"})
	require.NoError(t, err)

	notifier, err := domainjob.NewNotifier(domainjob.NotifierOptions{Waiter: q, MinGap: time.Millisecond})
	require.NoError(t, err)
	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Queue:       q,
		Executor:    worker,
		Notifier:    notifier,
		Concurrency: 2,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = runner.Run(ctx)
	}()

	srv := httptest.NewServer(httpx.NewRouter(httpx.RouterServices{
		Jobs:     jobs,
		Search:   search,
		Verifier: verifier,
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		notifier.StopAll()
		<-runDone
	})

	c, err := New(Config{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	return c
}

func TestEndToEnd_PullMode(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	corpus, err := c.CreateCorpus(ctx, "greetings", "hello help hallo yellow hello")
	require.NoError(t, err)

	taskID, err := c.Submit(ctx, model.JobParameters{Word: "hello", Algorithm: "levenshtein", CorpusID: corpus.ID})
	require.NoError(t, err)

	st, err := c.Observe(ctx, taskID, ObserveOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	res, err := Outcome(st)
	require.NoError(t, err)
	assert.Equal(t, []model.ResultEntry{
		{Word: "hello", Distance: 0},
		{Word: "hallo", Distance: 1},
		{Word: "help", Distance: 2},
		{Word: "yellow", Distance: 2},
	}, res.Results)

	sync, err := c.Search(ctx, model.JobParameters{Word: "hello", Algorithm: "EDIT_DISTANCE", CorpusID: corpus.ID})
	require.NoError(t, err)
	assert.Equal(t, res.Results, sync.Results)

	missing, err := c.Submit(ctx, model.JobParameters{Word: "hello", Algorithm: "ngram", CorpusID: "404"})
	require.NoError(t, err)
	st, err = c.Observe(ctx, missing, ObserveOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	_, err = Outcome(st)
	assert.ErrorIs(t, err, model.ErrCorpusNotFound)

	list, err := c.ListCorpora(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "greetings", list[0].Name)
}

func TestEndToEnd_PushMode(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	corpus, err := c.CreateCorpus(ctx, "c", "alpha beta gamma")
	require.NoError(t, err)

	sess, err := c.DialPush(ctx)
	require.NoError(t, err)
	defer sess.Close()

	started, err := sess.Submit(ctx, model.JobParameters{Word: "alpha", Algorithm: "ngram", CorpusID: corpus.ID})
	require.NoError(t, err)
	require.Equal(t, service.PushStarted, started.Status)

	var replies []PushReply
	final, err := sess.Watch(ctx, started.TaskID, 5*time.Millisecond, func(r PushReply) { replies = append(replies, r) })
	require.NoError(t, err)
	assert.Equal(t, service.PushCompleted, final.Status)
	require.NotNil(t, final.ExecutionTime)
	require.NotEmpty(t, final.Results)
	assert.Equal(t, model.ResultEntry{Word: "alpha", Distance: 0}, final.Results[0])
	assert.NotEmpty(t, replies)

	rejected, err := sess.Submit(ctx, model.JobParameters{Word: "", Algorithm: "ngram", CorpusID: corpus.ID})
	require.NoError(t, err)
	assert.True(t, rejected.Rejected())
	assert.Equal(t, "word is required", rejected.Error)
}

func TestEndToEnd_PushRequiresCredential(t *testing.T) {
	c := startServer(t)
	anon, err := New(Config{BaseURL: c.base.String()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := anon.DialPush(ctx)
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Status(ctx, "x")
	assert.Error(t, err)
}

func numberedCorpus(prefix string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%05d", prefix, i)
	}
	return strings.Join(words, " ")
}

func TestEndToEnd_ConcurrentJobsStayIndependent(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	big, err := c.CreateCorpus(ctx, "big", numberedCorpus("a", 3000))
	require.NoError(t, err)
	small, err := c.CreateCorpus(ctx, "small", numberedCorpus("b", 500))
	require.NoError(t, err)

	type outcome struct {
		final    model.JobStatus
		observed []model.JobStatus
		err      error
	}
	corpora := []string{big.ID, small.ID}
	outcomes := make([]outcome, len(corpora))

	var wg sync.WaitGroup
	for i, corpusID := range corpora {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := &outcomes[i]
			taskID, err := c.Submit(ctx, model.JobParameters{Word: "a00000", Algorithm: "levenshtein", CorpusID: corpusID})
			if err != nil {
				out.err = err
				return
			}
			out.final, out.err = c.Observe(ctx, taskID, ObserveOptions{
				Interval: time.Millisecond,
				OnChange: func(st model.JobStatus) { out.observed = append(out.observed, st) },
			})
		}()
	}
	wg.Wait()

	wants := []struct {
		label string
		total string
		first model.ResultEntry
	}{
		{"3000/3000", "/3000", model.ResultEntry{Word: "a00000", Distance: 0}},
		{"500/500", "/500", model.ResultEntry{Word: "b00000", Distance: 1}},
	}
	for i, want := range wants {
		out := outcomes[i]
		require.NoError(t, out.err)
		require.Equal(t, model.JobStateSucceeded, out.final.State)
		assert.Equal(t, want.label, out.final.ProgressLabel)
		require.NotNil(t, out.final.Result)
		require.NotEmpty(t, out.final.Result.Results)
		assert.Equal(t, want.first, out.final.Result.Results[0])

		last := -1
		for _, st := range out.observed {
			if st.Progress == nil {
				continue
			}
			assert.GreaterOrEqual(t, *st.Progress, last, "progress went backwards")
			last = *st.Progress
			if st.ProgressLabel != "" {
				assert.True(t, strings.HasSuffix(st.ProgressLabel, want.total), "label %q belongs to another job", st.ProgressLabel)
			}
		}
	}
}
