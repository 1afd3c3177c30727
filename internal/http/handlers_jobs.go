// Package httpx provides HTTP handlers and utilities for the fuzzy search API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/target/fuzzysearch/internal/domain/model"
	apperrors "github.com/target/fuzzysearch/internal/errors"
	"github.com/target/fuzzysearch/internal/service"
)

// JobHandlers provides HTTP handlers for asynchronous search jobs.
type JobHandlers struct {
	Svc *service.JobService
}

// searchRequest is the wire form of model.JobParameters.
type searchRequest struct {
	Word      string   `json:"word"`
	Algorithm string   `json:"algorithm"`
	CorpusID  corpusID `json:"corpus_id"`
}

func (r searchRequest) params() model.JobParameters {
	return model.JobParameters{Word: r.Word, Algorithm: r.Algorithm, CorpusID: string(r.CorpusID)}
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

// Submit handles HTTP requests to start an asynchronous search.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	who, _ := IdentityFromContext(r.Context())
	rec, err := h.Svc.Submit(r.Context(), who, req.params())
	if err != nil {
		writeSearchError(w, err, "submit_failed")
		return
	}

	w.Header().Set("Location", "/api/search/tasks/"+rec.ID)
	WriteJSON(w, http.StatusAccepted, submitResponse{TaskID: rec.ID})
}

// GetStatus handles HTTP requests to retrieve the status of a specific job.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("task id is required")},
		)
		return
	}

	status, err := h.Svc.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			WriteError(
				w,
				ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: errors.New("job not found")},
			)
		} else {
			writeAppError(w, err, "get_status_failed")
		}
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// writeSearchError maps domain errors from the search and job services onto
// HTTP responses. Unexpected errors are reported without their cause.
func writeSearchError(w http.ResponseWriter, err error, fallback string) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: vErr, Field: vErr.Field})
	case errors.Is(err, model.ErrUnknownAlgorithm):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unknown_algorithm", Err: err})
	case errors.Is(err, model.ErrCorpusNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "corpus_not_found", Err: err})
	default:
		writeAppError(w, err, fallback)
	}
}

// writeAppError answers with the status of err's application error code, or
// 500 with the fallback code. Only the AppError message reaches the client.
func writeAppError(w http.ResponseWriter, err error, fallback string) {
	status, ok := apperrors.HTTPStatus(err)
	appErr, _ := apperrors.As(err)
	if !ok || status == http.StatusInternalServerError {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: fallback,
			Err:     errors.New("internal error"),
		})
		return
	}
	WriteError(w, ErrorParams{
		Code:    status,
		ErrCode: string(appErr.Code),
		Err:     errors.New(appErr.Message),
		Field:   appErr.Field,
	})
}
