package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/internal/observability/metrics"
	"github.com/nicscott/assessment-reports/internal/report"
	"github.com/nicscott/assessment-reports/internal/submission"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Status codes surfaced to report page clients.
const (
	ErrCodeInvalidEntry   = "invalid_entry"
	ErrCodeReportNotFound = "report_not_found"
	ErrCodeAINotReady     = "ai_not_ready"
	statusNoBlocks        = "no_blocks"
)

// StatusResult is the polling payload returned to report page clients.
type StatusResult struct {
	Ready  bool   `json:"ready"`
	Failed bool   `json:"failed,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ModelParams bundles the provider invocation settings.
type ModelParams struct {
	Model       string
	Temperature float32
	MaxTokens   int32
	Provider    string
}

// Service runs content generation jobs and answers status queries.
type Service struct {
	meta        submission.MetaStore
	reports     report.Store
	formsClient forms.Client
	llm         LLMClient
	publisher   *Publisher
	codec       *entryhash.Codec
	dispatcher  *events.Dispatcher
	metrics     *metrics.PipelineMetrics
	params      ModelParams
	prompt      PromptSettings
	reportURL   func(entryHash string) string
	readyTag    string
	logger      *logging.Logger
}

// ServiceOption customizes optional collaborators.
type ServiceOption func(*Service)

// WithDispatcher wires the in-process event dispatcher.
func WithDispatcher(d *events.Dispatcher) ServiceOption {
	return func(s *Service) { s.dispatcher = d }
}

// WithMetrics wires pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithReadyTagSlug sets the CRM tag slug announced on completion events.
func WithReadyTagSlug(slug string) ServiceOption {
	return func(s *Service) { s.readyTag = slug }
}

// WithReportURLBuilder sets the public report link builder used in events.
func WithReportURLBuilder(fn func(entryHash string) string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.reportURL = fn
		}
	}
}

// NewService builds the generation service. A nil llm client is allowed
// and reported to clients as ai_not_ready.
func NewService(
	meta submission.MetaStore,
	reports report.Store,
	formsClient forms.Client,
	llm LLMClient,
	publisher *Publisher,
	codec *entryhash.Codec,
	params ModelParams,
	prompt PromptSettings,
	logger *logging.Logger,
	opts ...ServiceOption,
) *Service {
	if meta == nil {
		panic("generation: meta store cannot be nil")
	}
	if reports == nil {
		panic("generation: report store cannot be nil")
	}
	if formsClient == nil {
		panic("generation: forms client cannot be nil")
	}
	if publisher == nil {
		panic("generation: publisher cannot be nil")
	}
	if codec == nil {
		panic("generation: entry hash codec cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Service{
		meta:        meta,
		reports:     reports,
		formsClient: formsClient,
		llm:         llm,
		publisher:   publisher,
		codec:       codec,
		params:      params,
		prompt:      prompt,
		reportURL:   func(string) string { return "" },
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RequestGeneration ensures a generation job exists for the hashed
// entry. Already-finished entries short-circuit; failed ones are reset
// and re-queued.
func (s *Service) RequestGeneration(ctx context.Context, entryHash string) (StatusResult, error) {
	entryID := s.codec.Decode(entryHash)
	if entryID == 0 {
		return StatusResult{Error: ErrCodeInvalidEntry}, nil
	}

	meta, err := s.meta.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, submission.ErrMetaNotFound) {
			return StatusResult{Error: ErrCodeReportNotFound}, nil
		}
		return StatusResult{}, fmt.Errorf("generation: load meta: %w", err)
	}

	rep, err := s.reports.GetByID(ctx, meta.ReportID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return StatusResult{Error: ErrCodeReportNotFound}, nil
		}
		return StatusResult{}, fmt.Errorf("generation: load report: %w", err)
	}
	if len(rep.Blocks) == 0 {
		return StatusResult{Ready: true, Status: statusNoBlocks}, nil
	}

	if s.llm == nil {
		return StatusResult{Error: ErrCodeAINotReady}, nil
	}

	switch meta.Status {
	case submission.StatusReady:
		return StatusResult{Ready: true, Status: string(submission.StatusReady)}, nil
	case submission.StatusRunning:
		return StatusResult{Status: string(submission.StatusRunning)}, nil
	case submission.StatusFailed:
		if err := s.meta.ResetPending(ctx, entryID); err != nil {
			return StatusResult{}, fmt.Errorf("generation: reset entry %d: %w", entryID, err)
		}
		fallthrough
	default:
		if err := s.publisher.Enqueue(ctx, entryID); err != nil {
			return StatusResult{}, err
		}
		return StatusResult{Status: string(submission.StatusPending)}, nil
	}
}

// Status reports the generation state for the hashed entry.
func (s *Service) Status(ctx context.Context, entryHash string) (StatusResult, error) {
	entryID := s.codec.Decode(entryHash)
	if entryID == 0 {
		return StatusResult{Error: ErrCodeInvalidEntry}, nil
	}

	meta, err := s.meta.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, submission.ErrMetaNotFound) {
			return StatusResult{Status: string(submission.StatusPending)}, nil
		}
		return StatusResult{}, fmt.Errorf("generation: load meta: %w", err)
	}

	return StatusResult{
		Ready:  meta.Status == submission.StatusReady,
		Failed: meta.Status == submission.StatusFailed,
		Status: string(meta.Status),
	}, nil
}

// Generate runs the content generation job for one entry. Exactly one
// concurrent caller wins the running claim; the rest return without
// touching provider or store.
func (s *Service) Generate(ctx context.Context, entryID int64) error {
	claimed, err := s.meta.ClaimRunning(ctx, entryID)
	if err != nil {
		return fmt.Errorf("generation: claim entry %d: %w", entryID, err)
	}
	if !claimed {
		s.logger.Info("generation claim lost, skipping", "entry_id", entryID)
		return nil
	}

	meta, err := s.meta.Get(ctx, entryID)
	if err != nil {
		return s.fail(ctx, entryID, "", fmt.Errorf("generation: load meta: %w", err))
	}

	rep, err := s.reports.GetByID(ctx, meta.ReportID)
	if err != nil {
		return s.fail(ctx, entryID, meta.UIDHash, fmt.Errorf("generation: load report %d: %w", meta.ReportID, err))
	}
	if len(rep.Blocks) == 0 {
		return s.fail(ctx, entryID, meta.UIDHash, errors.New("generation: report has no content blocks"))
	}

	sub, err := s.formsClient.GetSubmission(ctx, entryID)
	if err != nil {
		return s.fail(ctx, entryID, meta.UIDHash, fmt.Errorf("generation: fetch entry: %w", err))
	}
	fields := forms.NormalizeFields(sub.Fields)

	started := time.Now()
	content := make(map[string]string, len(rep.Blocks))
	for _, block := range rep.Blocks {
		content[block.Token] = s.generateBlock(ctx, block, fields, meta.TotalScore)
	}
	s.metrics.ObserveGenerationLatency(s.params.Provider, time.Since(started).Seconds())

	if err := s.meta.MarkReady(ctx, entryID, content); err != nil {
		return fmt.Errorf("generation: mark ready %d: %w", entryID, err)
	}

	s.metrics.ObserveGeneration("completed")
	s.logger.Info("generation completed",
		"entry_id", entryID,
		"report_id", rep.ID,
		"blocks", len(content),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	s.publishCompleted(ctx, meta, rep, fields)
	return nil
}

// generateBlock returns provider output for the block, or the block's
// example text when the provider errors or returns nothing.
func (s *Service) generateBlock(ctx context.Context, block report.ContentBlock, fields map[string]any, totalScore int) string {
	if s.llm == nil {
		s.metrics.ObserveBlockFallback()
		return block.ExampleText
	}

	prompt := BuildPrompt(block, fields, totalScore, true, s.prompt)
	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.params.Model,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   s.params.MaxTokens,
		Temperature: s.params.Temperature,
	})
	if err != nil {
		s.logger.Warn("block generation failed, using example text", "token", block.Token, "error", err)
		s.metrics.ObserveBlockFallback()
		return block.ExampleText
	}
	if resp.Text == "" {
		s.metrics.ObserveBlockFallback()
		return block.ExampleText
	}
	return resp.Text
}

func (s *Service) fail(ctx context.Context, entryID int64, entryHash string, cause error) error {
	s.metrics.ObserveGeneration("failed")
	s.logger.Error("generation failed", "entry_id", entryID, "error", cause)

	if err := s.meta.MarkFailed(ctx, entryID, "generation_failed"); err != nil {
		s.logger.Error("mark failed", "entry_id", entryID, "error", err)
	}
	if s.dispatcher != nil {
		evt := events.GenerationFailed{
			EntryID:   entryID,
			EntryHash: entryHash,
			Reason:    cause.Error(),
		}
		aggregate := fmt.Sprintf("entry-%d", entryID)
		if err := s.dispatcher.Publish(ctx, aggregate, entryHash, evt); err != nil {
			s.logger.Error("publish failed event", "entry_id", entryID, "error", err)
		}
	}
	return cause
}

func (s *Service) publishCompleted(ctx context.Context, meta *submission.Meta, rep *report.Report, fields map[string]any) {
	if s.dispatcher == nil {
		return
	}
	first, last := forms.ContactName(fields)
	evt := events.GenerationCompleted{
		EntryID:     meta.EntryID,
		EntryHash:   meta.UIDHash,
		FormID:      meta.FormID,
		ReportID:    rep.ID,
		ReportTitle: rep.Title,
		ReportURL:   s.reportURL(meta.UIDHash),
		Email:       forms.FindEmail(fields),
		FirstName:   first,
		LastName:    last,
		TagSlug:     s.readyTag,
	}
	aggregate := fmt.Sprintf("entry-%d", meta.EntryID)
	if err := s.dispatcher.Publish(ctx, aggregate, meta.UIDHash, evt); err != nil {
		s.logger.Error("publish completed event", "entry_id", meta.EntryID, "error", err)
	}
}
