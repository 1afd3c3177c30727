package client

import (
	"context"
	"errors"
	"time"

	"github.com/target/fuzzysearch/internal/domain/model"
)

// DefaultPollInterval is the pause between status reads in Observe.
const DefaultPollInterval = 500 * time.Millisecond

// ObserveOptions tune Observe.
type ObserveOptions struct {
	Interval time.Duration
	// OnChange is called for the first status and whenever state, progress
	// or label change.
	OnChange func(model.JobStatus)
}

// Observe polls a task until it reaches a terminal state and returns that
// final status. Polling stops early when ctx ends.
func (c *Client) Observe(ctx context.Context, taskID string, opts ObserveOptions) (model.JobStatus, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var last *model.JobStatus
	for {
		st, err := c.Status(ctx, taskID)
		if err != nil {
			return model.JobStatus{}, err
		}
		if opts.OnChange != nil && (last == nil || changed(*last, st)) {
			opts.OnChange(st)
		}
		if st.State.Terminal() {
			return st, nil
		}
		last = &st

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-c.clock.After(interval):
		}
	}
}

func changed(a, b model.JobStatus) bool {
	if a.State != b.State || a.ProgressLabel != b.ProgressLabel {
		return true
	}
	return progressOf(a) != progressOf(b)
}

func progressOf(st model.JobStatus) int {
	if st.Progress == nil {
		return -1
	}
	return *st.Progress
}

// Outcome reduces a terminal status to its result or an error carrying the
// failure code.
func Outcome(st model.JobStatus) (*model.SearchResult, error) {
	switch st.State {
	case model.JobStateSucceeded:
		if st.Result == nil {
			return &model.SearchResult{Results: []model.ResultEntry{}}, nil
		}
		return st.Result, nil
	case model.JobStateFailed:
		return nil, &JobError{TaskID: st.TaskID, Code: st.Error, Message: st.ErrorMessage}
	default:
		return nil, errors.New("task is not finished")
	}
}

// JobError is a task that ended FAILED.
type JobError struct {
	TaskID  string
	Code    model.ErrorCode
	Message string
}

func (e *JobError) Error() string {
	if e.Message == "" {
		return "task " + e.TaskID + " failed: " + string(e.Code)
	}
	return "task " + e.TaskID + " failed: " + string(e.Code) + ": " + e.Message
}

// Unwrap exposes the matching domain sentinel.
func (e *JobError) Unwrap() error {
	switch e.Code {
	case model.ErrorCodeCorpusNotFound:
		return model.ErrCorpusNotFound
	case model.ErrorCodeUnknownAlgorithm:
		return model.ErrUnknownAlgorithm
	default:
		return nil
	}
}
