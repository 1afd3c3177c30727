package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/data/pgxutil"
	"github.com/target/fuzzysearch/internal/domain/model"
	apperrors "github.com/target/fuzzysearch/internal/errors"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
const (
	advisoryLockReaperMajor     = 1000
	advisoryLockReaperFailStale = 1
	advisoryLockReaperDelete    = 2
)

// RepoConfig holds configuration options for the PostgreSQL job repository.
type RepoConfig struct {
	Logger *slog.Logger
	Clock  clock.Clock
}

// JobRepo stores search jobs in PostgreSQL. Transitions are single
// conditional UPDATE statements, so the state check and the write are atomic.
type JobRepo struct {
	DB     *sql.DB
	clock  clock.Clock
	logger *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepo{DB: db, clock: clk, logger: logger.With("component", "job_repo")}
}

const jobColumns = `
  id::text,
  word,
  algorithm,
  corpus_id,
  state,
  progress,
  progress_label,
  result,
  error_code,
  error_message,
  submitted_by,
  created_at,
  updated_at,
  started_at,
  completed_at
`

func (r *JobRepo) Create(ctx context.Context, rec *model.JobRecord) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO search_jobs (id, word, algorithm, corpus_id, state, progress, progress_label,
			submitted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.Params.Word, rec.Params.Algorithm, rec.Params.CorpusID, string(rec.State),
		rec.Progress, rec.ProgressLabel, rec.SubmittedBy, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
		}
		return fmt.Errorf("insert job: %w", mapped)
	}
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM search_jobs WHERE id = $1`, id)
	rec, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || apperrors.IsNotFound(apperrors.MapDBError(err)) {
			return nil, model.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", apperrors.MapDBError(err))
	}
	return rec, nil
}

func (r *JobRepo) MarkRunning(ctx context.Context, id string) (bool, error) {
	now := r.clock.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE search_jobs
		SET state = 'RUNNING', progress = 0, progress_label = '', started_at = $2, updated_at = $2
		WHERE id = $1 AND state = 'PENDING'
	`, id, now)
	if err != nil {
		return false, r.transitionErr(id, "mark running", err)
	}
	return r.applied(ctx, id, res)
}

func (r *JobRepo) UpdateProgress(ctx context.Context, id string, progress int, label string) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range", progress)
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE search_jobs
		SET progress = $2, progress_label = $3, updated_at = $4
		WHERE id = $1 AND state = 'RUNNING' AND progress <= $2
	`, id, progress, label, r.clock.Now().UTC())
	if err != nil {
		return r.transitionErr(id, "update progress", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	state, err := r.state(ctx, id)
	if err != nil {
		return err
	}
	if state != model.JobStateRunning {
		return fmt.Errorf("%w: progress on %s job", model.ErrInvalidTransition, state)
	}
	return nil
}

func (r *JobRepo) Succeed(ctx context.Context, id string, result model.SearchResult) (bool, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("marshal result: %w", err)
	}
	now := r.clock.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE search_jobs
		SET state = 'SUCCEEDED', result = $2::jsonb, completed_at = $3, updated_at = $3
		WHERE id = $1 AND state = 'RUNNING'
	`, id, string(payload), now)
	if err != nil {
		return false, r.transitionErr(id, "succeed job", err)
	}
	return r.applied(ctx, id, res)
}

func (r *JobRepo) Fail(ctx context.Context, id string, code model.ErrorCode, msg string) (bool, error) {
	now := r.clock.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE search_jobs
		SET state = 'FAILED', error_code = $2, error_message = $3, completed_at = $4, updated_at = $4
		WHERE id = $1 AND state IN ('PENDING', 'RUNNING')
	`, id, string(code), msg, now)
	if err != nil {
		return false, r.transitionErr(id, "fail job", err)
	}
	return r.applied(ctx, id, res)
}

// FailStale marks RUNNING jobs not updated since cutoff as FAILED(INTERNAL).
// Uses advisory locks to prevent concurrent reaper instances from conflicting.
func (r *JobRepo) FailStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var affected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		locked, err := tryReaperLock(ctx, tx, advisoryLockReaperFailStale)
		if err != nil || !locked {
			return err
		}
		now := r.clock.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE search_jobs
			SET state = 'FAILED', error_code = $1, error_message = $2, completed_at = $3, updated_at = $3
			WHERE id IN (
				SELECT id FROM search_jobs
				WHERE state = 'RUNNING' AND updated_at < $4
				ORDER BY updated_at
				LIMIT $5
			)
		`, string(model.ErrorCodeInternal), staleJobMessage, now, cutoff.UTC(), limit)
		if err != nil {
			return fmt.Errorf("fail stale jobs: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return int(affected), err
}

// DeleteCompletedBefore removes terminal jobs completed before cutoff.
func (r *JobRepo) DeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var affected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, func(tx *sql.Tx) error {
		locked, err := tryReaperLock(ctx, tx, advisoryLockReaperDelete)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM search_jobs
			WHERE id IN (
				SELECT id FROM search_jobs
				WHERE state IN ('SUCCEEDED', 'FAILED') AND completed_at < $1
				ORDER BY completed_at
				LIMIT $2
			)
		`, cutoff.UTC(), limit)
		if err != nil {
			return fmt.Errorf("delete completed jobs: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return int(affected), err
}

func tryReaperLock(ctx context.Context, tx *sql.Tx, minor int) (bool, error) {
	var locked bool
	if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
		advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}

// applied converts an UPDATE result into the (changed, error) pair, telling
// an unknown id apart from a refused transition.
func (r *JobRepo) applied(ctx context.Context, id string, res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := r.state(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *JobRepo) state(ctx context.Context, id string) (model.JobState, error) {
	var state string
	err := r.DB.QueryRowContext(ctx, `SELECT state FROM search_jobs WHERE id = $1`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || apperrors.IsNotFound(apperrors.MapDBError(err)) {
			return "", model.ErrJobNotFound
		}
		return "", fmt.Errorf("read job state: %w", err)
	}
	return model.JobState(state), nil
}

func (r *JobRepo) transitionErr(id, op string, err error) error {
	mapped := apperrors.MapDBError(err)
	if apperrors.IsNotFound(mapped) {
		return model.ErrJobNotFound
	}
	r.logger.Error("job transition failed", "job_id", id, "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, mapped)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.JobRecord, error) {
	var (
		rec          model.JobRecord
		state        string
		result       []byte
		errorCode    sql.NullString
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Params.Word,
		&rec.Params.Algorithm,
		&rec.Params.CorpusID,
		&state,
		&rec.Progress,
		&rec.ProgressLabel,
		&result,
		&errorCode,
		&errorMessage,
		&rec.SubmittedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	rec.State = model.JobState(state)
	rec.ErrorCode = model.ErrorCode(errorCode.String)
	rec.ErrorMessage = errorMessage.String
	if len(result) > 0 {
		var res model.SearchResult
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		rec.Result = &res
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}

var (
	_ core.JobStore       = (*JobRepo)(nil)
	_ core.JobReaperStore = (*JobRepo)(nil)
)
