package submission

import (
	"context"
	"errors"
	"time"

	"github.com/nicscott/assessment-reports/internal/scoring"
)

// GenerationStatus tracks the lifecycle of a submission's content
// generation job.
type GenerationStatus string

const (
	StatusPending GenerationStatus = "pending"
	StatusRunning GenerationStatus = "running"
	StatusReady   GenerationStatus = "ready"
	StatusFailed  GenerationStatus = "failed"
)

// ErrMetaNotFound indicates no metadata exists for the entry.
var ErrMetaNotFound = errors.New("submission: meta not found")

// Meta is the per-entry state persisted when a submission is processed.
// Content maps block tokens to generated text once the job completes.
type Meta struct {
	EntryID         int64                  `json:"entry_id"`
	FormID          int64                  `json:"form_id"`
	ReportID        int64                  `json:"report_id"`
	UIDHash         string                 `json:"uid_hash"`
	TopSections     []scoring.SectionScore `json:"top_sections"`
	TotalScore      int                    `json:"total_score"`
	Status          GenerationStatus       `json:"status"`
	StatusError     string                 `json:"status_error,omitempty"`
	StatusUpdatedAt time.Time              `json:"status_updated_at"`
	Content         map[string]string      `json:"content,omitempty"`
}

// MetaStore persists submission metadata. ClaimPending and ClaimRunning
// are atomic: under concurrent delivery of the same entry exactly one
// caller wins each claim.
type MetaStore interface {
	Get(ctx context.Context, entryID int64) (*Meta, error)

	// ClaimPending inserts the initial pending record. Returns false
	// without error when a record for the entry already exists.
	ClaimPending(ctx context.Context, meta *Meta) (bool, error)

	// ClaimRunning moves a pending record to running. Returns false
	// when the record is missing or no longer pending.
	ClaimRunning(ctx context.Context, entryID int64) (bool, error)

	MarkReady(ctx context.Context, entryID int64, content map[string]string) error
	MarkFailed(ctx context.Context, entryID int64, errMsg string) error

	// ResetPending returns a finished record to pending so it can be
	// generated again, clearing prior content and error state.
	ResetPending(ctx context.Context, entryID int64) error
}
