package service

import (
	"github.com/target/fuzzysearch/internal/domain/model"
)

// Status names used on the push channel. These are the only place the
// broker-style vocabulary appears; everything else uses model.JobState.
const (
	PushPending   = "PENDING"
	PushProgress  = "PROGRESS"
	PushCompleted = "COMPLETED"
	PushFailed    = "FAILED"
	PushNotFound  = "NOT_FOUND"
	PushStarted   = "STARTED"
)

// PushMessage is one status reply on the push channel.
type PushMessage struct {
	Status        string              `json:"status"`
	TaskID        string              `json:"task_id"`
	Progress      *int                `json:"progress,omitempty"`
	CurrentWord   string              `json:"current_word,omitempty"`
	ExecutionTime *float64            `json:"execution_time,omitempty"`
	Results       []model.ResultEntry `json:"results,omitzero"`
	Error         model.ErrorCode     `json:"error,omitempty"`
	Word          string              `json:"word,omitempty"`
	Algorithm     string              `json:"algorithm,omitempty"`
}

// PushStatus maps a pull-mode status onto its push reply.
func PushStatus(st model.JobStatus) PushMessage {
	msg := PushMessage{TaskID: st.TaskID}
	switch st.State {
	case model.JobStateRunning:
		msg.Status = PushProgress
		p := 0
		if st.Progress != nil {
			p = *st.Progress
		}
		msg.Progress = &p
		if st.ProgressLabel != "" {
			msg.CurrentWord = "processing word " + st.ProgressLabel
		}
	case model.JobStateSucceeded:
		msg.Status = PushCompleted
		et := 0.0
		results := []model.ResultEntry{}
		if st.Result != nil {
			et = st.Result.ExecutionTime
			if st.Result.Results != nil {
				results = st.Result.Results
			}
		}
		msg.ExecutionTime = &et
		msg.Results = results
	case model.JobStateFailed:
		msg.Status = PushFailed
		msg.Error = st.Error
	default:
		msg.Status = PushPending
	}
	return msg
}

// PushNotFoundMessage is the reply for an id with no record.
func PushNotFoundMessage(taskID string) PushMessage {
	return PushMessage{Status: PushNotFound, TaskID: taskID}
}

// PushStartedMessage acknowledges a submission made over the push channel.
func PushStartedMessage(rec *model.JobRecord) PushMessage {
	return PushMessage{
		Status:    PushStarted,
		TaskID:    rec.ID,
		Word:      rec.Params.Word,
		Algorithm: rec.Params.Algorithm,
	}
}
