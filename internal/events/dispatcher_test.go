package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByEventType(t *testing.T) {
	d := NewDispatcher(nil)

	var got []Envelope
	d.Subscribe(TypeGenerationCompleted, func(ctx context.Context, env Envelope) error {
		got = append(got, env)
		return nil
	})
	d.Subscribe(TypeGenerationFailed, func(ctx context.Context, env Envelope) error {
		t.Fatal("failed handler should not fire")
		return nil
	})

	evt := GenerationCompleted{EntryID: 42, EntryHash: "abc", Email: "user@example.com"}
	require.NoError(t, d.Publish(context.Background(), "entry-42", "corr-1", evt))

	require.Len(t, got, 1)
	assert.Equal(t, TypeGenerationCompleted, got[0].EventType)
	assert.Equal(t, "entry-42", got[0].Aggregate)
	assert.Equal(t, "corr-1", got[0].CorrelationID)

	var decoded GenerationCompleted
	require.NoError(t, json.Unmarshal(got[0].Payload, &decoded))
	assert.Equal(t, evt, decoded)
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewDispatcher(nil)

	calls := 0
	d.Subscribe(TypeSubmissionPending, func(ctx context.Context, env Envelope) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(TypeSubmissionPending, func(ctx context.Context, env Envelope) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), "entry-1", "", SubmissionPending{EntryID: 1}))
	assert.Equal(t, 2, calls)
}

func TestPublishRejectsMissingAggregate(t *testing.T) {
	d := NewDispatcher(nil)
	err := d.Publish(context.Background(), " ", "", SubmissionPending{EntryID: 1})
	assert.Error(t, err)
}
