package core

import (
	"context"
	"time"

	"github.com/target/fuzzysearch/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobStore persists JobRecords. Each transition is atomic per record; callers
// never observe a torn read. After dispatch exactly one worker writes a record.
type JobStore interface {
	// Create inserts a new PENDING record.
	Create(ctx context.Context, rec *model.JobRecord) error
	// Get returns a copy of the record or model.ErrJobNotFound.
	Get(ctx context.Context, id string) (*model.JobRecord, error)
	// MarkRunning moves PENDING to RUNNING with progress 0. It reports false
	// when the record is not PENDING.
	MarkRunning(ctx context.Context, id string) (bool, error)
	// UpdateProgress records progress for a RUNNING job. Writes that would
	// lower progress are ignored.
	UpdateProgress(ctx context.Context, id string, progress int, label string) error
	// Succeed moves RUNNING to SUCCEEDED with result.
	Succeed(ctx context.Context, id string, result model.SearchResult) (bool, error)
	// Fail moves a non-terminal record to FAILED.
	Fail(ctx context.Context, id string, code model.ErrorCode, msg string) (bool, error)
}

// JobReaperStore is the maintenance surface used by the reaper.
type JobReaperStore interface {
	// FailStale fails RUNNING records not updated since before cutoff.
	// Queued PENDING records are never reaped.
	FailStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
	// DeleteCompletedBefore removes terminal records completed before cutoff.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// CorpusRepository stores searchable texts.
type CorpusRepository interface {
	// Lookup returns the corpus text or model.ErrCorpusNotFound.
	Lookup(ctx context.Context, id string) (string, error)
	Create(ctx context.Context, req *model.CreateCorpusRequest) (*model.Corpus, error)
	List(ctx context.Context, limit, offset int) ([]*model.CorpusSummary, error)
}

// Delivery is one reserved queue message.
type Delivery struct {
	JobID string
	// Ack confirms processing; Nack returns the message to the queue.
	Ack  func(ctx context.Context) error
	Nack func(ctx context.Context) error
}

// JobQueue hands job ids from the dispatcher to worker slots.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
	// Reserve returns the next delivery or model.ErrNoJobsAvailable.
	Reserve(ctx context.Context) (*Delivery, error)
	// WaitForNotification blocks until work may be available or ctx ends.
	WaitForNotification(ctx context.Context) error
	Close() error
}
