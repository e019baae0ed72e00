package submission

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/internal/report"
)

type stubEnqueuer struct {
	entries []int64
	err     error
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, entryID int64) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entryID)
	return nil
}

func newTestReportStore(t *testing.T) report.Store {
	t.Helper()
	ctx := context.Background()
	store := report.NewInMemoryStore()

	rep := &report.Report{Title: "Skin Quiz", SourceFormID: 7, Published: true}
	require.NoError(t, store.SaveReport(ctx, rep))
	require.NoError(t, store.SaveSection(ctx, &report.Section{
		ReportID: rep.ID, Title: "Hydration", Published: true, Position: 1,
		FieldWeights: report.FieldWeightMap{"color": {"blue": 5}},
	}))
	require.NoError(t, store.SaveSection(ctx, &report.Section{
		ReportID: rep.ID, Title: "Barrier", Published: true, Position: 2,
		FieldWeights: report.FieldWeightMap{"color": {"red": 3}},
	}))
	return store
}

func testSubmission() *forms.Submission {
	return &forms.Submission{
		EntryID: 42,
		FormID:  7,
		Fields: map[string]any{
			"color": "blue",
			"email": "user@example.com",
		},
	}
}

func TestHandleSubmissionScoresAndEnqueues(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{}
	codec := entryhash.NewCodec("test-secret")

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "https://example.com/report", nil)
	require.NoError(t, o.HandleSubmission(ctx, testSubmission()))

	assert.Equal(t, []int64{42}, enq.entries)

	got, err := meta.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 5, got.TotalScore)
	require.Len(t, got.TopSections, 1)
	assert.Equal(t, codec.Encode(42), got.UIDHash)
}

func TestHandleSubmissionDuplicateDeliveryEnqueuesOnce(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{}
	codec := entryhash.NewCodec("test-secret")

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "", nil)
	require.NoError(t, o.HandleSubmission(ctx, testSubmission()))
	require.NoError(t, o.HandleSubmission(ctx, testSubmission()))
	require.NoError(t, o.HandleSubmission(ctx, testSubmission()))

	assert.Equal(t, []int64{42}, enq.entries)
}

func TestHandleSubmissionUnboundFormIsNoOp(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{}
	codec := entryhash.NewCodec("test-secret")

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "", nil)

	sub := testSubmission()
	sub.FormID = 99
	require.NoError(t, o.HandleSubmission(ctx, sub))

	assert.Empty(t, enq.entries)
	_, err := meta.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrMetaNotFound)
}

func TestHandleSubmissionEnqueueFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{err: errors.New("queue down")}
	codec := entryhash.NewCodec("test-secret")

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "", nil)
	err := o.HandleSubmission(ctx, testSubmission())
	require.Error(t, err)

	got, metaErr := meta.Get(ctx, 42)
	require.NoError(t, metaErr)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestHandleSubmissionPublishesPendingEvent(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{}
	codec := entryhash.NewCodec("test-secret")

	dispatcher := events.NewDispatcher(nil)
	var pending []events.Envelope
	dispatcher.Subscribe(events.TypeSubmissionPending, func(ctx context.Context, env events.Envelope) error {
		pending = append(pending, env)
		return nil
	})

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "https://example.com/report", nil,
		WithDispatcher(dispatcher),
		WithPendingTagSlug("report-pending"),
	)
	require.NoError(t, o.HandleSubmission(ctx, testSubmission()))

	require.Len(t, pending, 1)
	assert.Equal(t, events.TypeSubmissionPending, pending[0].EventType)
}

func TestSimulateRunsPipeline(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{}
	codec := entryhash.NewCodec("test-secret")

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "", nil)
	entryID, err := o.Simulate(ctx, 7, map[string]any{"color": "blue"})
	require.NoError(t, err)
	require.NotZero(t, entryID)

	assert.Equal(t, []int64{entryID}, enq.entries)
	got, err := meta.Get(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 5, got.TotalScore)
}

func TestFireCompletedRepublishesEvent(t *testing.T) {
	ctx := context.Background()
	meta := NewInMemoryMetaStore()
	enq := &stubEnqueuer{}
	codec := entryhash.NewCodec("test-secret")

	dispatcher := events.NewDispatcher(nil)
	var completed []events.GenerationCompleted
	dispatcher.Subscribe(events.TypeGenerationCompleted, func(ctx context.Context, env events.Envelope) error {
		var evt events.GenerationCompleted
		require.NoError(t, json.Unmarshal(env.Payload, &evt))
		completed = append(completed, evt)
		return nil
	})

	o := NewOrchestrator(newTestReportStore(t), meta, codec, enq, "https://example.com/report", nil,
		WithDispatcher(dispatcher),
	)
	require.NoError(t, o.HandleSubmission(ctx, testSubmission()))
	require.NoError(t, o.FireCompleted(ctx, 42))

	require.Len(t, completed, 1)
	assert.Equal(t, int64(42), completed[0].EntryID)
	assert.Equal(t, "Skin Quiz", completed[0].ReportTitle)
	assert.Equal(t, codec.Encode(42), completed[0].EntryHash)
}

func TestFireCompletedUnknownEntry(t *testing.T) {
	codec := entryhash.NewCodec("test-secret")
	o := NewOrchestrator(newTestReportStore(t), NewInMemoryMetaStore(), codec, &stubEnqueuer{}, "", nil,
		WithDispatcher(events.NewDispatcher(nil)),
	)

	err := o.FireCompleted(context.Background(), 999)
	assert.ErrorIs(t, err, ErrMetaNotFound)
}

func TestReportURL(t *testing.T) {
	codec := entryhash.NewCodec("test-secret")
	o := NewOrchestrator(newTestReportStore(t), NewInMemoryMetaStore(), codec, &stubEnqueuer{}, "https://example.com/report", nil)

	assert.Equal(t, "https://example.com/report?entry=abc", o.ReportURL("abc"))

	o.reportPageURL = "https://example.com/report?page=1"
	assert.Equal(t, "https://example.com/report?page=1&entry=abc", o.ReportURL("abc"))
}
