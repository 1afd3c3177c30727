package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"

	"github.com/target/fuzzysearch/internal/core"
	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/observability/metrics"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Store   core.JobStore // Required: job store
	Queue   core.JobQueue // Required: job queue
	Logger  *slog.Logger  // Optional: structured logger
	Metrics metrics.Sink  // Optional: metrics sink
	Clock   clock.Clock   // Optional: defaults to wall clock
	NewID   func() string // Optional: defaults to random UUIDv4
}

// JobService is the dispatcher and pull-mode status reader for search jobs.
type JobService struct {
	store   core.JobStore
	queue   core.JobQueue
	logger  *slog.Logger
	metrics metrics.Sink
	clock   clock.Clock
	newID   func() string
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	var result *multierror.Error
	if opts.Store == nil {
		result = multierror.Append(result, errors.New("JobStore is required"))
	}
	if opts.Queue == nil {
		result = multierror.Append(result, errors.New("JobQueue is required"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	svc := &JobService{
		store:   opts.Store,
		queue:   opts.Queue,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
		newID:   opts.NewID,
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	svc.logger = svc.logger.With("component", "job_service")
	if svc.metrics == nil {
		svc.metrics = metrics.Nop{}
	}
	if svc.clock == nil {
		svc.clock = clock.WallClock
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Submit creates a PENDING record owned by the caller and hands its id to the
// queue. It returns as soon as the id is enqueued; no scoring happens here.
// Only structural validation is performed. If the enqueue fails the record
// is failed as INTERNAL so it cannot stay PENDING forever.
func (s *JobService) Submit(
	ctx context.Context,
	who domainauth.Identity,
	params model.JobParameters,
) (*model.JobRecord, error) {
	start := s.clock.Now()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	rec := model.NewJobRecord(s.newID(), params, who.UserID, start.UTC())
	if err := s.store.Create(ctx, rec); err != nil {
		s.emit(metrics.ResultError, start, err)
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, rec.ID); err != nil {
		s.emit(metrics.ResultError, start, err)
		if _, failErr := s.store.Fail(ctx, rec.ID, model.ErrorCodeInternal, "job could not be queued"); failErr != nil {
			s.logger.ErrorContext(ctx, "failed to fail unqueued job", "job_id", rec.ID, "error", failErr)
		}
		return nil, fmt.Errorf("enqueue job %s: %w", rec.ID, err)
	}

	s.emit(metrics.ResultSuccess, start, nil)
	s.logger.DebugContext(ctx, "job submitted",
		"job_id", rec.ID,
		"algorithm", params.Algorithm,
		"corpus_id", params.CorpusID,
		"submitted_by", who.UserID,
	)
	return rec, nil
}

func (s *JobService) emit(result string, start time.Time, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionSubmit,
		Result:     result,
		Duration:   s.clock.Now().Sub(start),
		Err:        err,
	})
}

// Get returns the full record for id or model.ErrJobNotFound.
func (s *JobService) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return rec, nil
}

// Status reads the current status of id through to the store.
func (s *JobService) Status(ctx context.Context, id string) (model.JobStatus, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return model.JobStatus{}, err
	}
	return rec.Status(), nil
}
