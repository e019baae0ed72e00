package submission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimPendingOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMetaStore()

	claimed, err := store.ClaimPending(ctx, &Meta{EntryID: 1, FormID: 2, ReportID: 3})
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.ClaimPending(ctx, &Meta{EntryID: 1})
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestClaimRunningTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMetaStore()

	_, err := store.ClaimRunning(ctx, 1)
	require.NoError(t, err)

	_, err = store.ClaimPending(ctx, &Meta{EntryID: 1})
	require.NoError(t, err)

	claimed, err := store.ClaimRunning(ctx, 1)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim loses; the job is already running.
	claimed, err = store.ClaimRunning(ctx, 1)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestMarkReadyAndResetPending(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMetaStore()

	_, err := store.ClaimPending(ctx, &Meta{EntryID: 5})
	require.NoError(t, err)

	content := map[string]string{"opening": "Hello"}
	require.NoError(t, store.MarkReady(ctx, 5, content))

	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, content, got.Content)

	require.NoError(t, store.ResetPending(ctx, 5))
	got, err = store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.Content)
}

func TestMarkFailedRecordsError(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryMetaStore()

	_, err := store.ClaimPending(ctx, &Meta{EntryID: 9})
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, 9, "provider unavailable"))

	got, err := store.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "provider unavailable", got.StatusError)

	assert.ErrorIs(t, store.MarkFailed(ctx, 404, "x"), ErrMetaNotFound)
}
