package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// ErrJobExists is returned when creating a record whose id is already taken.
var ErrJobExists = errors.New("job already exists")

// MemoryJobStore keeps job records in process memory. It is the default
// store for single-process deployments and tests.
type MemoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*model.JobRecord
	clock clock.Clock
}

// NewMemoryJobStore creates an empty store. A nil clock uses wall time.
func NewMemoryJobStore(clk clock.Clock) *MemoryJobStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryJobStore{jobs: make(map[string]*model.JobRecord), clock: clk}
}

func (s *MemoryJobStore) Create(_ context.Context, rec *model.JobRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("job record with id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
	}
	s.jobs[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryJobStore) MarkRunning(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false, model.ErrJobNotFound
	}
	if rec.State != model.JobStatePending {
		return false, nil
	}
	now := s.clock.Now().UTC()
	rec.State = model.JobStateRunning
	rec.Progress = 0
	rec.ProgressLabel = ""
	rec.StartedAt = &now
	rec.UpdatedAt = now
	return true, nil
}

func (s *MemoryJobStore) UpdateProgress(_ context.Context, id string, progress int, label string) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range", progress)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return model.ErrJobNotFound
	}
	if rec.State != model.JobStateRunning {
		return fmt.Errorf("%w: progress on %s job", model.ErrInvalidTransition, rec.State)
	}
	if progress < rec.Progress {
		return nil
	}
	rec.Progress = progress
	rec.ProgressLabel = label
	rec.UpdatedAt = s.clock.Now().UTC()
	return nil
}

func (s *MemoryJobStore) Succeed(_ context.Context, id string, result model.SearchResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false, model.ErrJobNotFound
	}
	if rec.State != model.JobStateRunning {
		return false, nil
	}
	now := s.clock.Now().UTC()
	res := result
	res.Results = append([]model.ResultEntry{}, result.Results...)
	rec.State = model.JobStateSucceeded
	rec.Result = &res
	rec.CompletedAt = &now
	rec.UpdatedAt = now
	return true, nil
}

func (s *MemoryJobStore) Fail(_ context.Context, id string, code model.ErrorCode, msg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return false, model.ErrJobNotFound
	}
	if rec.State.Terminal() {
		return false, nil
	}
	now := s.clock.Now().UTC()
	rec.State = model.JobStateFailed
	rec.ErrorCode = code
	rec.ErrorMessage = msg
	rec.CompletedAt = &now
	rec.UpdatedAt = now
	return true, nil
}

// FailStale fails RUNNING records last updated before cutoff. PENDING
// records are left for the queue to deliver.
func (s *MemoryJobStore) FailStale(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now().UTC()
	n := 0
	for _, rec := range s.jobs {
		if n >= limit {
			break
		}
		if rec.State != model.JobStateRunning || !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		rec.State = model.JobStateFailed
		rec.ErrorCode = model.ErrorCodeInternal
		rec.ErrorMessage = staleJobMessage
		rec.CompletedAt = &now
		rec.UpdatedAt = now
		n++
	}
	return n, nil
}

// DeleteCompletedBefore removes terminal records completed before cutoff.
func (s *MemoryJobStore) DeleteCompletedBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.jobs {
		if n >= limit {
			break
		}
		if !rec.State.Terminal() || rec.CompletedAt == nil || !rec.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.jobs, id)
		n++
	}
	return n, nil
}

const staleJobMessage = "job abandoned: no progress recorded before the stale deadline"

var (
	_ core.JobStore       = (*MemoryJobStore)(nil)
	_ core.JobReaperStore = (*MemoryJobStore)(nil)
)
