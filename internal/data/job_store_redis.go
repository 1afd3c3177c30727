package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// RedisJobStoreOptions configures a RedisJobStore.
type RedisJobStoreOptions struct {
	// Prefix namespaces every key. Defaults to "fuzzysearch:".
	Prefix string
	// RecordTTL expires terminal records. Zero keeps them until deleted.
	RecordTTL time.Duration
	Clock     clock.Clock
}

// RedisJobStore keeps each JobRecord in a hash and tracks active and
// completed ids in sorted sets. Every transition runs as one Lua script so
// state checks and writes are atomic per record.
//
// All keys share the {jobs} hash tag so scripts stay single-slot on Redis Cluster.
type RedisJobStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	clock  clock.Clock
}

// NewRedisJobStore creates a Redis-backed job store.
func NewRedisJobStore(client redis.UniversalClient, opts RedisJobStoreOptions) *RedisJobStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "fuzzysearch:"
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &RedisJobStore{client: client, prefix: prefix, ttl: opts.RecordTTL, clock: clk}
}

func (s *RedisJobStore) jobKey(id string) string { return s.prefix + "{jobs}:job:" + id }
func (s *RedisJobStore) activeKey() string       { return s.prefix + "{jobs}:active" }
func (s *RedisJobStore) doneKey() string         { return s.prefix + "{jobs}:done" }

const (
	scriptNotFound = -1
	scriptBadState = -2
)

var createJobScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
return 1
`)

var markRunningScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then return -1 end
if state ~= 'PENDING' then return 0 end
redis.call('HSET', KEYS[1], 'state', 'RUNNING', 'progress', 0, 'progress_label', '',
  'started_at', ARGV[1], 'updated_at', ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

var progressScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then return -1 end
if state ~= 'RUNNING' then return -2 end
local current = tonumber(redis.call('HGET', KEYS[1], 'progress') or '0')
if tonumber(ARGV[1]) < current then return 0 end
redis.call('HSET', KEYS[1], 'progress', ARGV[1], 'progress_label', ARGV[2], 'updated_at', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[5])
return 1
`)

// finishScript moves a record to a terminal state. ARGV[1] is the required
// current state ('RUNNING' or '*' for any non-terminal state).
var finishScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then return -1 end
if state == 'SUCCEEDED' or state == 'FAILED' then return 0 end
if ARGV[1] ~= '*' and state ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[1], 'state', ARGV[6], 'completed_at', ARGV[2], 'updated_at', ARGV[2], unpack(ARGV, 7))
redis.call('ZREM', KEYS[2], ARGV[4])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[4])
if tonumber(ARGV[5]) > 0 then redis.call('PEXPIRE', KEYS[1], ARGV[5]) end
return 1
`)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *RedisJobStore) Create(ctx context.Context, rec *model.JobRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("job record with id is required")
	}
	args := []any{
		rec.UpdatedAt.UnixMilli(), rec.ID,
		"id", rec.ID,
		"word", rec.Params.Word,
		"algorithm", rec.Params.Algorithm,
		"corpus_id", rec.Params.CorpusID,
		"state", string(rec.State),
		"progress", rec.Progress,
		"progress_label", rec.ProgressLabel,
		"submitted_by", rec.SubmittedBy,
		"created_at", formatTime(rec.CreatedAt),
		"updated_at", formatTime(rec.UpdatedAt),
	}
	created, err := createJobScript.Run(ctx, s.client, []string{s.jobKey(rec.ID), s.activeKey()}, args...).Int()
	if err != nil {
		return fmt.Errorf("redis create job: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrJobNotFound
	}
	return decodeJobHash(fields)
}

func (s *RedisJobStore) MarkRunning(ctx context.Context, id string) (bool, error) {
	now := s.clock.Now()
	res, err := markRunningScript.Run(ctx, s.client,
		[]string{s.jobKey(id), s.activeKey()},
		formatTime(now), now.UnixMilli(), id,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis mark running: %w", err)
	}
	if res == scriptNotFound {
		return false, model.ErrJobNotFound
	}
	return res == 1, nil
}

func (s *RedisJobStore) UpdateProgress(ctx context.Context, id string, progress int, label string) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range", progress)
	}
	now := s.clock.Now()
	res, err := progressScript.Run(ctx, s.client,
		[]string{s.jobKey(id), s.activeKey()},
		progress, label, formatTime(now), now.UnixMilli(), id,
	).Int()
	if err != nil {
		return fmt.Errorf("redis update progress: %w", err)
	}
	switch res {
	case scriptNotFound:
		return model.ErrJobNotFound
	case scriptBadState:
		return fmt.Errorf("%w: progress on non-running job", model.ErrInvalidTransition)
	}
	return nil
}

func (s *RedisJobStore) Succeed(ctx context.Context, id string, result model.SearchResult) (bool, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("marshal result: %w", err)
	}
	return s.finish(ctx, id, finishArgs{
		require: string(model.JobStateRunning),
		state:   model.JobStateSucceeded,
		fields:  []any{"result", string(payload)},
	})
}

func (s *RedisJobStore) Fail(ctx context.Context, id string, code model.ErrorCode, msg string) (bool, error) {
	return s.finish(ctx, id, finishArgs{
		require: "*",
		state:   model.JobStateFailed,
		fields:  []any{"error_code", string(code), "error_message", msg},
	})
}

type finishArgs struct {
	require string
	state   model.JobState
	fields  []any
}

func (s *RedisJobStore) finish(ctx context.Context, id string, fa finishArgs) (bool, error) {
	now := s.clock.Now()
	args := append([]any{
		fa.require, formatTime(now), now.UnixMilli(), id, s.ttl.Milliseconds(), string(fa.state),
	}, fa.fields...)
	res, err := finishScript.Run(ctx, s.client,
		[]string{s.jobKey(id), s.activeKey(), s.doneKey()}, args...,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis finish job: %w", err)
	}
	if res == scriptNotFound {
		return false, model.ErrJobNotFound
	}
	return res == 1, nil
}

// FailStale fails RUNNING records last updated before cutoff. The active set
// also holds queued PENDING records; those are skipped and paged past.
func (s *RedisJobStore) FailStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	n, offset := 0, int64(0)
	for n < limit {
		ids, err := s.client.ZRangeByScore(ctx, s.activeKey(), &redis.ZRangeBy{
			Min:    "-inf",
			Max:    "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
			Offset: offset,
			Count:  int64(limit),
		}).Result()
		if err != nil {
			return n, fmt.Errorf("redis list stale jobs: %w", err)
		}
		if len(ids) == 0 {
			return n, nil
		}
		// Failed and vanished ids leave the set; only skipped ones shift the window.
		for _, id := range ids {
			ok, err := s.finish(ctx, id, finishArgs{
				require: string(model.JobStateRunning),
				state:   model.JobStateFailed,
				fields:  []any{"error_code", string(model.ErrorCodeInternal), "error_message", staleJobMessage},
			})
			switch {
			case errors.Is(err, model.ErrJobNotFound):
				_ = s.client.ZRem(ctx, s.activeKey(), id).Err()
			case err != nil:
				return n, err
			case ok:
				n++
			default:
				offset++
			}
			if n >= limit {
				break
			}
		}
	}
	return n, nil
}

// DeleteCompletedBefore removes terminal records completed before cutoff.
func (s *RedisJobStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.doneKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list completed jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
		members[i] = id
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.ZRem(ctx, s.doneKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete completed jobs: %w", err)
	}
	return len(ids), nil
}

func decodeJobHash(f map[string]string) (*model.JobRecord, error) {
	rec := &model.JobRecord{
		ID: f["id"],
		Params: model.JobParameters{
			Word:      f["word"],
			Algorithm: f["algorithm"],
			CorpusID:  f["corpus_id"],
		},
		State:         model.JobState(f["state"]),
		ProgressLabel: f["progress_label"],
		ErrorCode:     model.ErrorCode(f["error_code"]),
		ErrorMessage:  f["error_message"],
		SubmittedBy:   f["submitted_by"],
	}
	if !rec.State.Valid() {
		return nil, fmt.Errorf("job %s has invalid state %q", rec.ID, f["state"])
	}
	if v := f["progress"]; v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("job %s progress: %w", rec.ID, err)
		}
		rec.Progress = p
	}
	if v := f["result"]; v != "" {
		var res model.SearchResult
		if err := json.Unmarshal([]byte(v), &res); err != nil {
			return nil, fmt.Errorf("job %s result: %w", rec.ID, err)
		}
		rec.Result = &res
	}

	var err error
	if rec.CreatedAt, err = parseTimeField(f, "created_at"); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTimeField(f, "updated_at"); err != nil {
		return nil, err
	}
	if rec.StartedAt, err = parseOptionalTime(f, "started_at"); err != nil {
		return nil, err
	}
	if rec.CompletedAt, err = parseOptionalTime(f, "completed_at"); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseTimeField(f map[string]string, name string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, f[name])
	if err != nil {
		return time.Time{}, fmt.Errorf("job %s %s: %w", f["id"], name, err)
	}
	return t, nil
}

func parseOptionalTime(f map[string]string, name string) (*time.Time, error) {
	if f[name] == "" {
		return nil, nil
	}
	t, err := parseTimeField(f, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var (
	_ core.JobStore       = (*RedisJobStore)(nil)
	_ core.JobReaperStore = (*RedisJobStore)(nil)
)
