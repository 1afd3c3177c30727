package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/match"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/observability/metrics"
)

// WorkerOptions groups dependencies for Worker.
type WorkerOptions struct {
	Store   core.JobStore         // Required: job store
	Corpora core.CorpusRepository // Required: corpus lookups
	Logger  *slog.Logger          // Optional: structured logger
	Metrics metrics.Sink          // Optional: metrics sink
	Clock   clock.Clock           // Optional: times the scoring loop
}

// Worker drives one job at a time from PENDING to a terminal state.
type Worker struct {
	store   core.JobStore
	corpora core.CorpusRepository
	logger  *slog.Logger
	metrics metrics.Sink
	clock   clock.Clock
}

// NewWorker constructs a new Worker.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	var result *multierror.Error
	if opts.Store == nil {
		result = multierror.Append(result, errors.New("JobStore is required"))
	}
	if opts.Corpora == nil {
		result = multierror.Append(result, errors.New("CorpusRepository is required"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	w := &Worker{
		store:   opts.Store,
		corpora: opts.Corpora,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "search_worker")
	if w.metrics == nil {
		w.metrics = metrics.Nop{}
	}
	if w.clock == nil {
		w.clock = clock.WallClock
	}
	return w, nil
}

// jobFailure is a terminal failure the worker records on the job.
type jobFailure struct {
	code model.ErrorCode
	err  error
}

func (f *jobFailure) Error() string { return f.err.Error() }
func (f *jobFailure) Unwrap() error { return f.err }

func failWith(code model.ErrorCode, err error) error {
	return &jobFailure{code: code, err: err}
}

// Execute runs jobID to completion. A job whose record is missing or no
// longer PENDING is a duplicate delivery and is skipped.
//
// A non-nil error means the job could not be started because the store was
// unavailable; the record is untouched and the delivery may be retried.
// Once the job is RUNNING every outcome, including panics, ends in a
// terminal record and Execute returns nil.
//
// Cancelling ctx does not interrupt a started job.
func (w *Worker) Execute(ctx context.Context, jobID string) error {
	ctx = context.WithoutCancel(ctx)
	log := w.logger.With("job_id", jobID)

	rec, err := w.store.Get(ctx, jobID)
	if errors.Is(err, model.ErrJobNotFound) {
		log.WarnContext(ctx, "skipping delivery for unknown job")
		w.emit(metrics.ResultNoop, 0, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if rec.State != model.JobStatePending {
		log.InfoContext(ctx, "skipping duplicate delivery", "state", rec.State)
		w.emit(metrics.ResultNoop, 0, nil)
		return nil
	}

	started, err := w.store.MarkRunning(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			w.emit(metrics.ResultNoop, 0, nil)
			return nil
		}
		return fmt.Errorf("start job %s: %w", jobID, err)
	}
	if !started {
		log.InfoContext(ctx, "job already claimed")
		w.emit(metrics.ResultNoop, 0, nil)
		return nil
	}

	begin := w.clock.Now()
	result, err := w.run(ctx, rec)
	if err != nil {
		w.recordFailure(ctx, log, jobID, err)
		w.emit(metrics.ResultError, w.clock.Now().Sub(begin), err)
		return nil
	}

	ok, err := w.store.Succeed(ctx, jobID, result)
	switch {
	case err != nil:
		log.ErrorContext(ctx, "failed to record job result", "error", err)
		w.recordFailure(ctx, log, jobID, err)
		w.emit(metrics.ResultError, w.clock.Now().Sub(begin), err)
	case !ok:
		log.WarnContext(ctx, "job finished elsewhere before result was recorded")
		w.emit(metrics.ResultNoop, w.clock.Now().Sub(begin), nil)
	default:
		log.InfoContext(ctx, "job succeeded",
			"execution_time", result.ExecutionTime,
			"results", len(result.Results),
		)
		w.emit(metrics.ResultSuccess, w.clock.Now().Sub(begin), nil)
	}
	return nil
}

// run performs the search for a RUNNING job. Panics are converted into
// INTERNAL failures.
func (w *Worker) run(ctx context.Context, rec *model.JobRecord) (result model.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failWith(model.ErrorCodeInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	text, err := w.corpora.Lookup(ctx, rec.Params.CorpusID)
	if err != nil {
		if errors.Is(err, model.ErrCorpusNotFound) {
			return result, failWith(model.ErrorCodeCorpusNotFound, err)
		}
		return result, failWith(model.ErrorCodeInternal, fmt.Errorf("lookup corpus: %w", err))
	}

	alg, err := model.ParseAlgorithm(rec.Params.Algorithm)
	if err != nil {
		return result, failWith(model.ErrorCodeUnknownAlgorithm, err)
	}
	scorer, err := match.NewScorer(alg, rec.Params.Word)
	if err != nil {
		return result, failWith(model.ErrorCodeUnknownAlgorithm, err)
	}

	words := match.Tokenize(text)
	progress := newProgressWriter(w.store, rec.ID)

	start := w.clock.Now()
	entries, err := match.Scan(scorer, words, func(done, total int) error {
		return progress.report(ctx, done, total)
	})
	if err != nil {
		return result, failWith(model.ErrorCodeInternal, fmt.Errorf("record progress: %w", err))
	}
	if len(words) == 0 {
		if err := progress.report(ctx, 0, 0); err != nil {
			return result, failWith(model.ErrorCodeInternal, fmt.Errorf("record progress: %w", err))
		}
	}
	elapsed := w.clock.Now().Sub(start)

	return model.SearchResult{
		ExecutionTime: roundSeconds(elapsed.Seconds()),
		Results:       match.Rank(entries, model.MaxResults),
	}, nil
}

func (w *Worker) recordFailure(ctx context.Context, log *slog.Logger, jobID string, err error) {
	code := model.ErrorCodeInternal
	var jf *jobFailure
	if errors.As(err, &jf) {
		code = jf.code
	}
	msg := err.Error()
	if code == model.ErrorCodeInternal {
		log.ErrorContext(ctx, "job failed", "error_code", code, "error", err)
		msg = "internal error"
	} else {
		log.InfoContext(ctx, "job failed", "error_code", code, "error", err)
	}

	if _, ferr := w.store.Fail(ctx, jobID, code, msg); ferr != nil {
		log.ErrorContext(ctx, "failed to record job failure", "error_code", code, "error", ferr)
	}
}

func (w *Worker) emit(result string, d time.Duration, err error) {
	metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
		Transition: metrics.TransitionExecute,
		Result:     result,
		Duration:   d,
		Err:        err,
	})
}

// roundSeconds rounds to 4 decimal places.
func roundSeconds(s float64) float64 {
	return math.Round(s*1e4) / 1e4
}

// progressWriter writes progress only when the integer percentage changes.
// The final write for the last candidate always happens.
type progressWriter struct {
	store core.JobStore
	jobID string
	last  int
}

func newProgressWriter(store core.JobStore, jobID string) *progressWriter {
	// MarkRunning already recorded 0%.
	return &progressWriter{store: store, jobID: jobID, last: 0}
}

func (p *progressWriter) report(ctx context.Context, done, total int) error {
	pct := 100
	if total > 0 {
		pct = done * 100 / total
	}
	if pct == p.last && done != total {
		return nil
	}
	p.last = pct
	return p.store.UpdateProgress(ctx, p.jobID, pct, strconv.Itoa(done)+"/"+strconv.Itoa(total))
}
