package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/internal/report"
	"github.com/nicscott/assessment-reports/internal/submission"
)

type stubLLM struct {
	complete func(req LLMRequest) (LLMResponse, error)
	calls    int
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.calls++
	return s.complete(req)
}

type stubForms struct {
	sub *forms.Submission
	err error
}

func (s *stubForms) GetSubmission(ctx context.Context, entryID int64) (*forms.Submission, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sub, nil
}

type serviceFixture struct {
	service *Service
	meta    *submission.InMemoryMetaStore
	reports report.Store
	codec   *entryhash.Codec
	queue   *MemoryQueue
}

func newServiceFixture(t *testing.T, llm LLMClient, opts ...ServiceOption) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	reports := report.NewInMemoryStore()
	rep := &report.Report{
		Title:        "Skin Quiz",
		SourceFormID: 7,
		Published:    true,
		Blocks: []report.ContentBlock{
			{Token: "opening", ExampleText: "Example opening.", ContextFields: []string{"concern"}},
			{Token: "closing", ExampleText: "Example closing."},
		},
	}
	require.NoError(t, reports.SaveReport(ctx, rep))

	meta := submission.NewInMemoryMetaStore()
	codec := entryhash.NewCodec("test-secret")
	claimed, err := meta.ClaimPending(ctx, &submission.Meta{
		EntryID: 42, FormID: 7, ReportID: rep.ID, UIDHash: codec.Encode(42), TotalScore: 9,
	})
	require.NoError(t, err)
	require.True(t, claimed)

	formsClient := &stubForms{sub: &forms.Submission{
		EntryID: 42,
		FormID:  7,
		Fields:  map[string]any{"concern": "dryness", "email": "user@example.com"},
	}}

	queue := NewMemoryQueue(16)
	publisher := NewPublisher(queue, nil)

	service := NewService(meta, reports, formsClient, llm, publisher, codec,
		ModelParams{Model: "test-model", Temperature: 0.7, MaxTokens: 500, Provider: "stub"},
		PromptSettings{Tone: "Professional", Voice: "Second Person"},
		nil, opts...)

	return &serviceFixture{service: service, meta: meta, reports: reports, codec: codec, queue: queue}
}

func TestGenerateStoresContentPerBlock(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "Personalized: " + req.Messages[0].Content[:7]}, nil
	}}
	f := newServiceFixture(t, llm)

	require.NoError(t, f.service.Generate(context.Background(), 42))

	meta, err := f.meta.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusReady, meta.Status)
	assert.Len(t, meta.Content, 2)
	assert.Equal(t, 2, llm.calls)
}

func TestGenerateFallsBackPerBlock(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		if strings.Contains(req.Messages[0].Content, "Example opening.") {
			return LLMResponse{}, errors.New("provider timeout")
		}
		return LLMResponse{Text: "Generated closing."}, nil
	}}
	f := newServiceFixture(t, llm)

	require.NoError(t, f.service.Generate(context.Background(), 42))

	meta, err := f.meta.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusReady, meta.Status)
	assert.Equal(t, "Example opening.", meta.Content["opening"])
	assert.Equal(t, "Generated closing.", meta.Content["closing"])
}

func TestGenerateClaimLostIsNoOp(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "x"}, nil
	}}
	f := newServiceFixture(t, llm)

	require.NoError(t, f.service.Generate(context.Background(), 42))
	require.NoError(t, f.service.Generate(context.Background(), 42))

	assert.Equal(t, 2, llm.calls)
}

func TestGenerateFormsFailureMarksFailed(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "x"}, nil
	}}
	dispatcher := events.NewDispatcher(nil)
	var failed []events.Envelope
	dispatcher.Subscribe(events.TypeGenerationFailed, func(ctx context.Context, env events.Envelope) error {
		failed = append(failed, env)
		return nil
	})

	f := newServiceFixture(t, llm, WithDispatcher(dispatcher))
	f.service.formsClient = &stubForms{err: errors.New("entry gone")}

	err := f.service.Generate(context.Background(), 42)
	require.Error(t, err)

	meta, metaErr := f.meta.Get(context.Background(), 42)
	require.NoError(t, metaErr)
	assert.Equal(t, submission.StatusFailed, meta.Status)
	assert.Equal(t, "generation_failed", meta.StatusError)
	assert.Len(t, failed, 1)
}

func TestGeneratePublishesCompletedEvent(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "ok"}, nil
	}}
	dispatcher := events.NewDispatcher(nil)
	var completed []events.Envelope
	dispatcher.Subscribe(events.TypeGenerationCompleted, func(ctx context.Context, env events.Envelope) error {
		completed = append(completed, env)
		return nil
	})

	f := newServiceFixture(t, llm, WithDispatcher(dispatcher), WithReadyTagSlug("report-ready"))
	require.NoError(t, f.service.Generate(context.Background(), 42))

	require.Len(t, completed, 1)
	assert.Equal(t, events.TypeGenerationCompleted, completed[0].EventType)
}

func TestRequestGenerationStateMachine(t *testing.T) {
	ctx := context.Background()
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "ok"}, nil
	}}
	f := newServiceFixture(t, llm)
	hash := f.codec.Encode(42)

	result, err := f.service.RequestGeneration(ctx, "garbage")
	require.NoError(t, err)
	assert.Equal(t, ErrCodeInvalidEntry, result.Error)

	result, err = f.service.RequestGeneration(ctx, f.codec.Encode(999))
	require.NoError(t, err)
	assert.Equal(t, ErrCodeReportNotFound, result.Error)

	// Pending entry gets queued.
	result, err = f.service.RequestGeneration(ctx, hash)
	require.NoError(t, err)
	assert.False(t, result.Ready)
	assert.Equal(t, "pending", result.Status)

	// Running entries are not re-queued.
	_, err = f.meta.ClaimRunning(ctx, 42)
	require.NoError(t, err)
	result, err = f.service.RequestGeneration(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "running", result.Status)

	// Finished entries short-circuit.
	require.NoError(t, f.meta.MarkReady(ctx, 42, map[string]string{"opening": "x"}))
	result, err = f.service.RequestGeneration(ctx, hash)
	require.NoError(t, err)
	assert.True(t, result.Ready)

	// Failed entries are reset and re-queued.
	require.NoError(t, f.meta.MarkFailed(ctx, 42, "boom"))
	result, err = f.service.RequestGeneration(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)

	meta, err := f.meta.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusPending, meta.Status)
}

func TestRequestGenerationWithoutProvider(t *testing.T) {
	f := newServiceFixture(t, nil)

	result, err := f.service.RequestGeneration(context.Background(), f.codec.Encode(42))
	require.NoError(t, err)
	assert.Equal(t, ErrCodeAINotReady, result.Error)
}

func TestStatusReportsLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, nil)
	hash := f.codec.Encode(42)

	result, err := f.service.Status(ctx, hash)
	require.NoError(t, err)
	assert.False(t, result.Ready)
	assert.Equal(t, "pending", result.Status)

	require.NoError(t, f.meta.MarkFailed(ctx, 42, "boom"))
	result, err = f.service.Status(ctx, hash)
	require.NoError(t, err)
	assert.True(t, result.Failed)

	require.NoError(t, f.meta.MarkReady(ctx, 42, nil))
	result, err = f.service.Status(ctx, hash)
	require.NoError(t, err)
	assert.True(t, result.Ready)

	result, err = f.service.Status(ctx, "garbage")
	require.NoError(t, err)
	assert.Equal(t, ErrCodeInvalidEntry, result.Error)
}
