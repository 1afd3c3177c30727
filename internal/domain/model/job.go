package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobState represents the lifecycle state of a search job.
type JobState string

const (
	JobStatePending   JobState = "PENDING"
	JobStateRunning   JobState = "RUNNING"
	JobStateSucceeded JobState = "SUCCEEDED"
	JobStateFailed    JobState = "FAILED"
)

// Valid reports whether s is one of the known states.
func (s JobState) Valid() bool {
	switch s {
	case JobStatePending, JobStateRunning, JobStateSucceeded, JobStateFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are possible from s.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// ErrorCode classifies why a job failed.
type ErrorCode string

const (
	ErrorCodeCorpusNotFound   ErrorCode = "CORPUS_NOT_FOUND"
	ErrorCodeUnknownAlgorithm ErrorCode = "UNKNOWN_ALGORITHM"
	ErrorCodeInternal         ErrorCode = "INTERNAL"
)

// Algorithm identifies a distance function.
type Algorithm string

const (
	AlgorithmEditDistance Algorithm = "EDIT_DISTANCE"
	AlgorithmNGram        Algorithm = "NGRAM"
)

// ParseAlgorithm resolves wire names, including the legacy lowercase aliases,
// to a canonical Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "edit_distance", "levenshtein":
		return AlgorithmEditDistance, nil
	case "ngram":
		return AlgorithmNGram, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// MaxResults caps the number of entries kept in a SearchResult.
const MaxResults = 10

// JobParameters are the immutable inputs of a search job. Algorithm is kept
// as submitted; resolution happens when the job runs.
type JobParameters struct {
	Word      string `json:"word"`
	Algorithm string `json:"algorithm"`
	CorpusID  string `json:"corpus_id"`
}

// Validate performs structural validation only. Semantic checks (corpus
// existence, algorithm support) are the worker's job.
func (p JobParameters) Validate() error {
	if strings.TrimSpace(p.Word) == "" {
		return &ValidationError{Field: "word", Message: "word is required"}
	}
	if strings.TrimSpace(p.Algorithm) == "" {
		return &ValidationError{Field: "algorithm", Message: "algorithm is required"}
	}
	if strings.TrimSpace(p.CorpusID) == "" {
		return &ValidationError{Field: "corpus_id", Message: "corpus_id is required"}
	}
	return nil
}

// ResultEntry is one scored candidate.
type ResultEntry struct {
	Word     string `json:"word"`
	Distance int    `json:"distance"`
}

// SearchResult is the outcome of a successful search.
type SearchResult struct {
	ExecutionTime float64       `json:"execution_time"`
	Results       []ResultEntry `json:"results"`
}

// JobRecord is the persisted state of one search job.
type JobRecord struct {
	ID            string        `json:"id"             db:"id"`
	Params        JobParameters `json:"parameters"`
	State         JobState      `json:"state"          db:"state"`
	Progress      int           `json:"progress"       db:"progress"`
	ProgressLabel string        `json:"progress_label" db:"progress_label"`
	Result        *SearchResult `json:"result,omitempty"`
	ErrorCode     ErrorCode     `json:"error,omitempty"         db:"error_code"`
	ErrorMessage  string        `json:"error_message,omitempty" db:"error_message"`
	SubmittedBy   string        `json:"submitted_by,omitempty"  db:"submitted_by"`
	CreatedAt     time.Time     `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"     db:"updated_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty"   db:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// NewJobRecord builds a PENDING record for params.
func NewJobRecord(id string, params JobParameters, submittedBy string, now time.Time) *JobRecord {
	return &JobRecord{
		ID:          id,
		Params:      params,
		State:       JobStatePending,
		SubmittedBy: submittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Result != nil {
		res := *r.Result
		res.Results = append([]ResultEntry(nil), r.Result.Results...)
		c.Result = &res
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// JobStatus is the pull-mode view of a JobRecord.
type JobStatus struct {
	TaskID        string        `json:"task_id"`
	State         JobState      `json:"state"`
	Progress      *int          `json:"progress,omitempty"`
	ProgressLabel string        `json:"progress_label,omitempty"`
	Result        *SearchResult `json:"result,omitempty"`
	Error         ErrorCode     `json:"error,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// Status projects the record onto the fields meaningful in its state.
func (r *JobRecord) Status() JobStatus {
	st := JobStatus{TaskID: r.ID, State: r.State}
	switch r.State {
	case JobStatePending:
	case JobStateRunning:
		p := r.Progress
		st.Progress = &p
		st.ProgressLabel = r.ProgressLabel
	case JobStateSucceeded:
		p := r.Progress
		st.Progress = &p
		st.ProgressLabel = r.ProgressLabel
		st.Result = r.Result
	case JobStateFailed:
		st.Error = r.ErrorCode
		st.ErrorMessage = r.ErrorMessage
	}
	return st
}

var (
	// ErrJobNotFound is returned when no record exists for a job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrCorpusNotFound is returned by corpus lookups for unknown ids.
	ErrCorpusNotFound = errors.New("corpus not found")
	// ErrUnknownAlgorithm is returned for algorithm names no matcher supports.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	// ErrAuthenticationFailed is returned when a credential cannot be verified.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNoJobsAvailable is returned by a queue with nothing to deliver.
	ErrNoJobsAvailable = errors.New("no jobs available")
	// ErrInvalidTransition is returned when a store refuses a state change.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// ValidationError reports a structurally invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
