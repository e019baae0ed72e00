package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicscott/assessment-reports/internal/events"
)

func publishCompleted(t *testing.T, d *events.Dispatcher, evt events.GenerationCompleted) {
	t.Helper()
	require.NoError(t, d.Publish(context.Background(), "report", "", evt))
}

func TestBridgeStoresReportMetaAndAttachesTag(t *testing.T) {
	client := NewInMemoryClient()
	dispatcher := events.NewDispatcher(nil)
	NewBridge(client, nil).Register(dispatcher)

	publishCompleted(t, dispatcher, events.GenerationCompleted{
		EntryID:   42,
		EntryHash: "hash-42",
		ReportID:  11,
		ReportURL: "https://example.com/report?entry=hash-42",
		Email:     "ada@example.com",
		FirstName: "Ada",
	})

	contact, err := client.UpsertContact(context.Background(), "ada@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", contact.FirstName)
	assert.True(t, client.HasTag(contact.ID, DefaultReadyTagSlug))

	hash, err := client.GetMeta(context.Background(), contact.ID, MetaLatestHash)
	require.NoError(t, err)
	assert.Equal(t, "hash-42", hash)

	url, err := client.GetMeta(context.Background(), contact.ID, MetaLatestURL)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/report?entry=hash-42", url)

	tagHash, err := client.GetMeta(context.Background(), contact.ID, MetaLatestHash+"_"+DefaultReadyTagSlug)
	require.NoError(t, err)
	assert.Equal(t, "hash-42", tagHash)

	raw, err := client.GetMeta(context.Background(), contact.ID, MetaReports)
	require.NoError(t, err)
	var reports []ReportRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, int64(42), reports[0].EntryID)
}

func TestBridgeDedupesByEntryHash(t *testing.T) {
	client := NewInMemoryClient()
	dispatcher := events.NewDispatcher(nil)
	NewBridge(client, nil).Register(dispatcher)

	evt := events.GenerationCompleted{
		EntryID: 42, EntryHash: "hash-42", ReportID: 11,
		ReportURL: "https://example.com/a", Email: "ada@example.com",
	}
	publishCompleted(t, dispatcher, evt)
	evt.ReportURL = "https://example.com/b"
	publishCompleted(t, dispatcher, evt)

	contact, err := client.UpsertContact(context.Background(), "ada@example.com", "", "")
	require.NoError(t, err)

	raw, err := client.GetMeta(context.Background(), contact.ID, MetaReports)
	require.NoError(t, err)
	var reports []ReportRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "https://example.com/b", reports[0].ReportURL)
}

func TestBridgeBoundsStoredReports(t *testing.T) {
	orig := nowFunc
	nowFunc = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(func() { nowFunc = orig })

	client := NewInMemoryClient()
	dispatcher := events.NewDispatcher(nil)
	NewBridge(client, nil).Register(dispatcher)

	for i := 0; i < maxStoredReports+5; i++ {
		publishCompleted(t, dispatcher, events.GenerationCompleted{
			EntryID:   int64(i + 1),
			EntryHash: fmt.Sprintf("hash-%d", i+1),
			ReportID:  11,
			ReportURL: fmt.Sprintf("https://example.com/%d", i+1),
			Email:     "ada@example.com",
		})
	}

	contact, err := client.UpsertContact(context.Background(), "ada@example.com", "", "")
	require.NoError(t, err)

	raw, err := client.GetMeta(context.Background(), contact.ID, MetaReports)
	require.NoError(t, err)
	var reports []ReportRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &reports))
	require.Len(t, reports, maxStoredReports)
	// Oldest entries fall off; newest is kept.
	assert.Equal(t, "hash-6", reports[0].EntryHash)
	assert.Equal(t, fmt.Sprintf("hash-%d", maxStoredReports+5), reports[len(reports)-1].EntryHash)
}

func TestBridgePendingTagLifecycle(t *testing.T) {
	client := NewInMemoryClient()
	dispatcher := events.NewDispatcher(nil)
	NewBridge(client, nil, WithPendingTagSlug("ar-ai-report-generating")).Register(dispatcher)

	require.NoError(t, dispatcher.Publish(context.Background(), "report", "", events.SubmissionPending{
		EntryID:   42,
		EntryHash: "hash-42",
		Email:     "ada@example.com",
		FirstName: "Ada",
	}))

	contact, err := client.UpsertContact(context.Background(), "ada@example.com", "", "")
	require.NoError(t, err)
	assert.True(t, client.HasTag(contact.ID, "ar-ai-report-generating"))

	publishCompleted(t, dispatcher, events.GenerationCompleted{
		EntryID: 42, EntryHash: "hash-42", ReportID: 11,
		ReportURL: "https://example.com/a", Email: "ada@example.com",
	})

	assert.False(t, client.HasTag(contact.ID, "ar-ai-report-generating"))
	assert.True(t, client.HasTag(contact.ID, DefaultReadyTagSlug))
}

func TestBridgeSkipsEventsWithoutEmail(t *testing.T) {
	client := NewInMemoryClient()
	dispatcher := events.NewDispatcher(nil)
	NewBridge(client, nil).Register(dispatcher)

	publishCompleted(t, dispatcher, events.GenerationCompleted{EntryID: 42, EntryHash: "hash-42"})

	// No contact should have been created.
	_, err := client.UpsertContact(context.Background(), "", "", "")
	assert.Error(t, err)
	assert.Empty(t, client.contacts)
}

func TestBridgePreservesExistingNames(t *testing.T) {
	client := NewInMemoryClient()
	_, err := client.UpsertContact(context.Background(), "ada@example.com", "Augusta", "King")
	require.NoError(t, err)

	dispatcher := events.NewDispatcher(nil)
	NewBridge(client, nil).Register(dispatcher)
	publishCompleted(t, dispatcher, events.GenerationCompleted{
		EntryID: 42, EntryHash: "hash-42",
		Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace",
	})

	contact, err := client.UpsertContact(context.Background(), "ada@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Augusta", contact.FirstName)
	assert.Equal(t, "King", contact.LastName)
}
