package metrics

import (
	"time"

	obserrors "github.com/target/fuzzysearch/internal/observability/errors"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Job lifecycle transitions.
const (
	TransitionSubmit  = "submit"
	TransitionReserve = "reserve"
	TransitionExecute = "execute"
	TransitionReap    = "reap"
)

// Sink receives metric observations. Implementations must be safe for
// concurrent use.
type Sink interface {
	JobTransition(transition, result, errorClass string)
	JobDuration(transition, result string, d time.Duration)
	PushSessions(delta int)
	HTTPRequest(route, method string, status int, d time.Duration)
}

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink Sink, in JobMetric) {
	if sink == nil {
		return
	}

	var class string
	if in.Err != nil && in.Result == ResultError {
		class = obserrors.Classify(in.Err)
	}
	sink.JobTransition(in.Transition, in.Result, class)

	if in.Duration > 0 {
		sink.JobDuration(in.Transition, in.Result, in.Duration)
	}
}

// Nop discards every observation.
type Nop struct{}

func (Nop) JobTransition(string, string, string)           {}
func (Nop) JobDuration(string, string, time.Duration)      {}
func (Nop) PushSessions(int)                               {}
func (Nop) HTTPRequest(string, string, int, time.Duration) {}

var _ Sink = Nop{}
