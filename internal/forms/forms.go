package forms

import (
	"context"
	"errors"
	"time"
)

// ErrSubmissionNotFound is returned when the forms platform has no entry
// for the requested identifier.
var ErrSubmissionNotFound = errors.New("forms: submission not found")

// Submission is one form entry as delivered by the forms platform.
// Fields holds the raw response values keyed by field name; values may
// be scalars or platform-specific nested structures until passed
// through NormalizeFields.
type Submission struct {
	EntryID     int64          `json:"entry_id"`
	FormID      int64          `json:"form_id"`
	Fields      map[string]any `json:"fields"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Client fetches submissions from the forms platform.
type Client interface {
	GetSubmission(ctx context.Context, entryID int64) (*Submission, error)
}
