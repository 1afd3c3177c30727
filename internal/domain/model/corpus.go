package model

import (
	"strings"
	"time"
)

// Corpus is a named body of text that search candidates are drawn from.
type Corpus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CorpusSummary is a listing entry without the text body.
type CorpusSummary struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateCorpusRequest is the input for storing a new corpus.
type CreateCorpusRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Validate checks the request has a name and some text.
func (r *CreateCorpusRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(r.Name) > 255 {
		return &ValidationError{Field: "name", Message: "name must be at most 255 characters"}
	}
	if strings.TrimSpace(r.Text) == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	return nil
}
