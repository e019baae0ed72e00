package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicscott/assessment-reports/internal/submission"
)

func TestWorkerProcessesQueuedJob(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "generated"}, nil
	}}
	f := newServiceFixture(t, llm)

	publisher := NewPublisher(f.queue, nil)
	require.NoError(t, publisher.Enqueue(context.Background(), 42))

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(f.service, f.queue, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	worker.Start(ctx)

	require.Eventually(t, func() bool {
		meta, err := f.meta.Get(context.Background(), 42)
		return err == nil && meta.Status == submission.StatusReady
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	worker.Wait()
}

func TestWorkerDiscardsMalformedJob(t *testing.T) {
	llm := &stubLLM{complete: func(req LLMRequest) (LLMResponse, error) {
		return LLMResponse{Text: "generated"}, nil
	}}
	f := newServiceFixture(t, llm)

	require.NoError(t, f.queue.Send(context.Background(), "not json"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(f.service, f.queue, nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	worker.Start(ctx)

	// The malformed message is dropped without invoking the provider.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, llm.calls)

	cancel()
	worker.Wait()
}

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, "a"))
	require.NoError(t, q.Send(ctx, "b"))

	msgs, err := q.Receive(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Body)
	assert.Equal(t, "b", msgs[1].Body)

	// Empty queue times out without error.
	msgs, err = q.Receive(ctx, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPublisherEncodesEntryID(t *testing.T) {
	q := NewMemoryQueue(1)
	p := NewPublisher(q, nil)

	require.NoError(t, p.Enqueue(context.Background(), 42))

	msgs, err := q.Receive(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Body, `"entry_id":42`)
}
