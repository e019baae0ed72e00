package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/report"
	"github.com/nicscott/assessment-reports/internal/submission"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

// View lifecycle states.
const (
	StateReady   = "ready"
	StateLoading = "loading"
	StateFailed  = "failed"
	StateMessage = "message"
)

// Reader-facing messages for non-ready states.
const (
	MsgReportNotFound  = "Report not found."
	MsgNoReportData    = "No report data is available yet."
	MsgReportMissing   = "Unable to locate the selected report."
	MsgAIUnavailable   = "AI personalization is not available yet. Please try again later."
	MsgGenerationError = "We could not generate your personalized report. Please try again later."
	MsgNoSections      = "We could not match any sections for your submission."
	MsgGenerating      = "Generating your personalized report…"
)

// Polling parameters handed to the report page client.
const (
	pollInitialDelayMillis = 1500
	pollStepMillis         = 250
	pollMaxAttempts        = 40
)

// PollingParams tells the client how to poll for generation progress.
type PollingParams struct {
	InitialDelayMillis int `json:"initial_delay_ms"`
	StepMillis         int `json:"step_ms"`
	MaxAttempts        int `json:"max_attempts"`
}

// SectionView is one matched report section with resolved content.
type SectionView struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Score   int    `json:"score"`
}

// ReportView is the rendered report payload served to the page.
type ReportView struct {
	State     string         `json:"state"`
	Message   string         `json:"message,omitempty"`
	EntryHash string         `json:"entry_hash,omitempty"`
	Title     string         `json:"title,omitempty"`
	Opening   string         `json:"opening,omitempty"`
	Sections  []SectionView  `json:"sections,omitempty"`
	Closing   string         `json:"closing,omitempty"`
	Polling   *PollingParams `json:"polling,omitempty"`
}

// ViewBuilder assembles report views from stored metadata and content.
type ViewBuilder struct {
	reports     report.Store
	meta        submission.MetaStore
	codec       *entryhash.Codec
	cache       *Cache
	aiAvailable bool
	logger      *logging.Logger
}

// ViewBuilderOption customizes optional collaborators.
type ViewBuilderOption func(*ViewBuilder)

// WithCache wires a Redis-backed view cache.
func WithCache(cache *Cache) ViewBuilderOption {
	return func(b *ViewBuilder) { b.cache = cache }
}

// WithAIAvailable declares whether a generation provider is configured.
func WithAIAvailable(available bool) ViewBuilderOption {
	return func(b *ViewBuilder) { b.aiAvailable = available }
}

// NewViewBuilder constructs a view builder.
func NewViewBuilder(reports report.Store, meta submission.MetaStore, codec *entryhash.Codec, logger *logging.Logger, opts ...ViewBuilderOption) *ViewBuilder {
	if reports == nil {
		panic("render: report store cannot be nil")
	}
	if meta == nil {
		panic("render: meta store cannot be nil")
	}
	if codec == nil {
		panic("render: entry hash codec cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	b := &ViewBuilder{
		reports:     reports,
		meta:        meta,
		codec:       codec,
		aiAvailable: true,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build renders the report for a hashed entry. Only fully ready views
// are cached; transitional states are always recomputed.
func (b *ViewBuilder) Build(ctx context.Context, entryHash string) (*ReportView, error) {
	entryID := b.codec.Decode(entryHash)
	if entryID == 0 {
		return messageView(MsgReportNotFound), nil
	}

	if b.cache != nil {
		cached, err := b.cache.Get(ctx, entryHash)
		if err != nil {
			b.logger.Warn("view cache read failed", "entry_hash", entryHash, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	meta, err := b.meta.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, submission.ErrMetaNotFound) {
			return messageView(MsgNoReportData), nil
		}
		return nil, fmt.Errorf("render: load meta: %w", err)
	}
	if len(meta.TopSections) == 0 {
		return messageView(MsgNoReportData), nil
	}

	rep, err := b.reports.GetByID(ctx, meta.ReportID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return messageView(MsgReportMissing), nil
		}
		return nil, fmt.Errorf("render: load report: %w", err)
	}

	requiresAI := len(rep.Blocks) > 0
	if requiresAI {
		switch {
		case meta.Status == submission.StatusFailed:
			return &ReportView{State: StateFailed, Message: MsgGenerationError, EntryHash: entryHash}, nil
		case len(meta.Content) == 0 || meta.Status == submission.StatusPending || meta.Status == submission.StatusRunning:
			if !b.aiAvailable {
				return messageView(MsgAIUnavailable), nil
			}
			return loadingView(entryHash), nil
		}
	}

	view, err := b.buildReady(ctx, entryHash, meta, rep)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if err := b.cache.Set(ctx, entryHash, view); err != nil {
			b.logger.Warn("view cache write failed", "entry_hash", entryHash, "error", err)
		}
	}
	return view, nil
}

func (b *ViewBuilder) buildReady(ctx context.Context, entryHash string, meta *submission.Meta, rep *report.Report) (*ReportView, error) {
	resolver := NewResolver(rep.Blocks, meta.Content)

	view := &ReportView{
		State:     StateReady,
		EntryHash: entryHash,
		Title:     rep.Title,
		Opening:   resolver.Resolve(rep.OpeningContent),
		Closing:   resolver.Resolve(rep.ClosingContent),
	}

	for _, ranked := range meta.TopSections {
		section, err := b.reports.GetSection(ctx, ranked.SectionID)
		if err != nil {
			if errors.Is(err, report.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("render: load section %d: %w", ranked.SectionID, err)
		}
		if !section.Published {
			continue
		}
		view.Sections = append(view.Sections, SectionView{
			Title:   section.Title,
			Content: resolver.Resolve(section.Content),
			Score:   ranked.Score,
		})
	}

	if len(view.Sections) == 0 {
		view.Message = MsgNoSections
	}
	return view, nil
}

func messageView(message string) *ReportView {
	return &ReportView{State: StateMessage, Message: message}
}

func loadingView(entryHash string) *ReportView {
	return &ReportView{
		State:     StateLoading,
		Message:   MsgGenerating,
		EntryHash: entryHash,
		Polling: &PollingParams{
			InitialDelayMillis: pollInitialDelayMillis,
			StepMillis:         pollStepMillis,
			MaxAttempts:        pollMaxAttempts,
		},
	}
}
