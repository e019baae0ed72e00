package submission

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/internal/observability/metrics"
	"github.com/nicscott/assessment-reports/internal/report"
	"github.com/nicscott/assessment-reports/internal/scoring"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

var nowFunc = time.Now

// GenerationEnqueuer hands a claimed submission off to the async
// generation pipeline.
type GenerationEnqueuer interface {
	Enqueue(ctx context.Context, entryID int64) error
}

// Orchestrator drives the per-submission pipeline: score, persist,
// enqueue generation, and announce the pending report.
type Orchestrator struct {
	reports        report.Store
	meta           MetaStore
	formsClient    forms.Client
	codec          *entryhash.Codec
	enqueuer       GenerationEnqueuer
	dispatcher     *events.Dispatcher
	metrics        *metrics.PipelineMetrics
	reportPageURL  string
	pendingTagSlug string
	logger         *logging.Logger
}

// OrchestratorOption customizes optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithDispatcher wires the in-process event dispatcher.
func WithDispatcher(d *events.Dispatcher) OrchestratorOption {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithMetrics wires pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithPendingTagSlug sets the CRM tag slug announced on pending events.
func WithPendingTagSlug(slug string) OrchestratorOption {
	return func(o *Orchestrator) { o.pendingTagSlug = slug }
}

// WithFormsClient wires the forms platform client used for reprocessing.
func WithFormsClient(c forms.Client) OrchestratorOption {
	return func(o *Orchestrator) { o.formsClient = c }
}

// NewOrchestrator builds the submission pipeline.
func NewOrchestrator(
	reports report.Store,
	meta MetaStore,
	codec *entryhash.Codec,
	enqueuer GenerationEnqueuer,
	reportPageURL string,
	logger *logging.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	if reports == nil {
		panic("submission: report store cannot be nil")
	}
	if meta == nil {
		panic("submission: meta store cannot be nil")
	}
	if codec == nil {
		panic("submission: entry hash codec cannot be nil")
	}
	if enqueuer == nil {
		panic("submission: enqueuer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	o := &Orchestrator{
		reports:       reports,
		meta:          meta,
		codec:         codec,
		enqueuer:      enqueuer,
		reportPageURL: reportPageURL,
		logger:        logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// HandleSubmission scores an incoming form entry, claims its metadata
// record, and enqueues the generation job. Re-delivery of an already
// claimed entry is a no-op.
func (o *Orchestrator) HandleSubmission(ctx context.Context, sub *forms.Submission) error {
	if sub == nil || sub.EntryID == 0 {
		return errors.New("submission: entry required")
	}

	rep, err := o.reports.GetByFormID(ctx, sub.FormID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			o.metrics.ObserveSubmission("no_report")
			o.logger.Debug("no report bound to form", "form_id", sub.FormID, "entry_id", sub.EntryID)
			return nil
		}
		o.metrics.ObserveSubmission("error")
		return fmt.Errorf("submission: resolve report: %w", err)
	}

	sections, err := o.reports.ListPublishedSections(ctx, rep.ID)
	if err != nil {
		o.metrics.ObserveSubmission("error")
		return fmt.Errorf("submission: list sections: %w", err)
	}

	fields := forms.NormalizeFields(sub.Fields)
	ranked := scoring.ScoreSubmission(fields, sections)
	total := 0
	for _, sec := range ranked {
		total += sec.Score
	}

	hash := o.codec.Encode(sub.EntryID)
	meta := &Meta{
		EntryID:     sub.EntryID,
		FormID:      sub.FormID,
		ReportID:    rep.ID,
		UIDHash:     hash,
		TopSections: ranked,
		TotalScore:  total,
	}

	claimed, err := o.meta.ClaimPending(ctx, meta)
	if err != nil {
		o.metrics.ObserveSubmission("error")
		return fmt.Errorf("submission: claim entry %d: %w", sub.EntryID, err)
	}
	if !claimed {
		o.metrics.ObserveSubmission("duplicate")
		o.logger.Info("entry already claimed, skipping", "entry_id", sub.EntryID)
		return nil
	}

	if err := o.enqueuer.Enqueue(ctx, sub.EntryID); err != nil {
		o.metrics.ObserveSubmission("error")
		if markErr := o.meta.MarkFailed(ctx, sub.EntryID, "enqueue failed"); markErr != nil {
			o.logger.Error("mark failed after enqueue error", "entry_id", sub.EntryID, "error", markErr)
		}
		return fmt.Errorf("submission: enqueue entry %d: %w", sub.EntryID, err)
	}

	o.metrics.ObserveSubmission("processed")
	o.logger.Info("submission scored and enqueued",
		"entry_id", sub.EntryID,
		"form_id", sub.FormID,
		"report_id", rep.ID,
		"top_sections", len(ranked),
	)

	o.publishPending(ctx, sub, rep, hash, fields)
	return nil
}

// Reprocess rescores an existing entry and queues a fresh generation
// job, replacing any prior content.
func (o *Orchestrator) Reprocess(ctx context.Context, entryID int64) error {
	if o.formsClient == nil {
		return errors.New("submission: forms client not configured")
	}
	sub, err := o.formsClient.GetSubmission(ctx, entryID)
	if err != nil {
		return fmt.Errorf("submission: fetch entry %d: %w", entryID, err)
	}

	if err := o.meta.ResetPending(ctx, entryID); err != nil {
		if !errors.Is(err, ErrMetaNotFound) {
			return fmt.Errorf("submission: reset entry %d: %w", entryID, err)
		}
		// Never processed before; run the normal pipeline.
		return o.HandleSubmission(ctx, sub)
	}

	if err := o.enqueuer.Enqueue(ctx, entryID); err != nil {
		return fmt.Errorf("submission: enqueue entry %d: %w", entryID, err)
	}
	o.logger.Info("entry queued for reprocessing", "entry_id", entryID)
	return nil
}

// Simulate runs a synthetic submission through the full pipeline and
// returns the generated entry id. Operators use it to exercise scoring
// and generation without a live form.
func (o *Orchestrator) Simulate(ctx context.Context, formID int64, fields map[string]any) (int64, error) {
	if formID == 0 {
		return 0, errors.New("submission: form id required")
	}
	entryID := nowFunc().UnixMicro()
	sub := &forms.Submission{
		EntryID:     entryID,
		FormID:      formID,
		Fields:      fields,
		SubmittedAt: nowFunc(),
	}
	if err := o.HandleSubmission(ctx, sub); err != nil {
		return 0, err
	}
	return entryID, nil
}

// FireCompleted re-publishes the generation-completed event for an
// entry so downstream consumers (CRM tags, emails) can be replayed.
func (o *Orchestrator) FireCompleted(ctx context.Context, entryID int64) error {
	if o.dispatcher == nil {
		return errors.New("submission: dispatcher not configured")
	}

	meta, err := o.meta.Get(ctx, entryID)
	if err != nil {
		return fmt.Errorf("submission: load entry %d: %w", entryID, err)
	}

	rep, err := o.reports.GetByID(ctx, meta.ReportID)
	if err != nil {
		return fmt.Errorf("submission: load report %d: %w", meta.ReportID, err)
	}

	evt := events.GenerationCompleted{
		EntryID:     entryID,
		EntryHash:   meta.UIDHash,
		FormID:      meta.FormID,
		ReportID:    rep.ID,
		ReportTitle: rep.Title,
		ReportURL:   o.ReportURL(meta.UIDHash),
	}
	if o.formsClient != nil {
		if sub, err := o.formsClient.GetSubmission(ctx, entryID); err == nil {
			fields := forms.NormalizeFields(sub.Fields)
			evt.Email = forms.FindEmail(fields)
			evt.FirstName, evt.LastName = forms.ContactName(fields)
		} else {
			o.logger.Warn("fire-completed without contact details", "entry_id", entryID, "error", err)
		}
	}

	aggregate := fmt.Sprintf("entry-%d", entryID)
	if err := o.dispatcher.Publish(ctx, aggregate, meta.UIDHash, evt); err != nil {
		return fmt.Errorf("submission: publish completed event: %w", err)
	}
	o.logger.Info("completed event re-fired", "entry_id", entryID)
	return nil
}

// ReportURL builds the public link that renders the entry's report.
func (o *Orchestrator) ReportURL(entryHash string) string {
	return BuildReportURL(o.reportPageURL, entryHash)
}

// BuildReportURL appends the entry hash to the configured report page,
// preserving any query string already present on the page URL.
func BuildReportURL(pageURL, entryHash string) string {
	if pageURL == "" || entryHash == "" {
		return ""
	}
	sep := "?"
	if u, err := url.Parse(pageURL); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return pageURL + sep + "entry=" + url.QueryEscape(entryHash)
}

func (o *Orchestrator) publishPending(ctx context.Context, sub *forms.Submission, rep *report.Report, hash string, fields map[string]any) {
	if o.dispatcher == nil {
		return
	}
	first, last := forms.ContactName(fields)
	evt := events.SubmissionPending{
		EntryID:   sub.EntryID,
		EntryHash: hash,
		FormID:    sub.FormID,
		ReportID:  rep.ID,
		ReportURL: o.ReportURL(hash),
		Email:     forms.FindEmail(fields),
		FirstName: first,
		LastName:  last,
		TagSlug:   o.pendingTagSlug,
	}
	aggregate := fmt.Sprintf("entry-%d", sub.EntryID)
	if err := o.dispatcher.Publish(ctx, aggregate, hash, evt); err != nil {
		o.logger.Error("publish pending event", "entry_id", sub.EntryID, "error", err)
	}
}
