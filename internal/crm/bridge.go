package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/notify"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Contact meta keys written by the bridge. Tag-scoped variants append
// "_<tag-slug>" so automations keyed to a specific tag can read their
// own latest report.
const (
	MetaReports    = "ar_ai_reports"
	MetaLatestHash = "ar_ai_report_latest_hash"
	MetaLatestURL  = "ar_ai_report_latest_url"

	// DefaultReadyTagSlug is applied when a completed event carries no
	// tag of its own.
	DefaultReadyTagSlug = "ar-ai-report-ready"

	maxStoredReports = 20
)

var nowFunc = time.Now

// Bridge mirrors report pipeline events into the CRM: it upserts the
// contact, records report links as contact meta, and manages the
// pending/ready tags automations hang off of.
type Bridge struct {
	client         Client
	notifier       *notify.ReportNotifier
	pendingTagSlug string
	logger         *logging.Logger
}

// BridgeOption customizes optional collaborators.
type BridgeOption func(*Bridge)

// WithNotifier wires the report-ready email notifier.
func WithNotifier(n *notify.ReportNotifier) BridgeOption {
	return func(b *Bridge) { b.notifier = n }
}

// WithPendingTagSlug sets the tag attached while generation runs and
// detached on completion. Empty disables pending tagging.
func WithPendingTagSlug(slug string) BridgeOption {
	return func(b *Bridge) { b.pendingTagSlug = slug }
}

// NewBridge creates a CRM bridge.
func NewBridge(client Client, logger *logging.Logger, opts ...BridgeOption) *Bridge {
	if client == nil {
		panic("crm: client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	b := &Bridge{client: client, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Register subscribes the bridge to the pipeline events it consumes.
func (b *Bridge) Register(dispatcher *events.Dispatcher) {
	if dispatcher == nil {
		panic("crm: dispatcher cannot be nil")
	}
	dispatcher.Subscribe(events.TypeSubmissionPending, b.handleSubmissionPending)
	dispatcher.Subscribe(events.TypeGenerationCompleted, b.handleGenerationCompleted)
}

func (b *Bridge) handleSubmissionPending(ctx context.Context, env events.Envelope) error {
	var evt events.SubmissionPending
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		return fmt.Errorf("crm: decode submission pending event: %w", err)
	}

	tagSlug := evt.TagSlug
	if tagSlug == "" {
		tagSlug = b.pendingTagSlug
	}
	if tagSlug == "" {
		return nil
	}
	if evt.Email == "" {
		b.logger.Warn("pending tag skipped, no email resolved", "entry_id", evt.EntryID)
		return nil
	}

	contact, err := b.client.UpsertContact(ctx, evt.Email, evt.FirstName, evt.LastName)
	if err != nil {
		return fmt.Errorf("crm: upsert contact for entry %d: %w", evt.EntryID, err)
	}

	if err := b.client.AttachTag(ctx, contact.ID, tagSlug); err != nil {
		return fmt.Errorf("crm: attach pending tag: %w", err)
	}
	b.logger.Info("pending tag attached", "contact_id", contact.ID, "tag_slug", tagSlug, "entry_id", evt.EntryID)
	return nil
}

func (b *Bridge) handleGenerationCompleted(ctx context.Context, env events.Envelope) error {
	var evt events.GenerationCompleted
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		return fmt.Errorf("crm: decode generation completed event: %w", err)
	}

	if evt.Email == "" {
		b.logger.Warn("completed event skipped, no email resolved", "entry_id", evt.EntryID)
		return nil
	}

	contact, err := b.client.UpsertContact(ctx, evt.Email, evt.FirstName, evt.LastName)
	if err != nil {
		return fmt.Errorf("crm: upsert contact for entry %d: %w", evt.EntryID, err)
	}

	tagSlug := evt.TagSlug
	if tagSlug == "" {
		tagSlug = DefaultReadyTagSlug
	}

	// Meta goes in before the tag so automations triggered by the tag
	// can already read the report link.
	if err := b.storeReportMeta(ctx, contact.ID, evt, tagSlug); err != nil {
		return err
	}

	if err := b.client.AttachTag(ctx, contact.ID, tagSlug); err != nil {
		return fmt.Errorf("crm: attach ready tag: %w", err)
	}
	b.logger.Info("ready tag attached", "contact_id", contact.ID, "tag_slug", tagSlug, "entry_id", evt.EntryID)

	if b.pendingTagSlug != "" {
		if err := b.client.DetachTag(ctx, contact.ID, b.pendingTagSlug); err != nil {
			b.logger.Warn("failed to detach pending tag", "contact_id", contact.ID, "tag_slug", b.pendingTagSlug, "error", err)
		}
	}

	if b.notifier != nil {
		err := b.notifier.NotifyReportReady(ctx, notify.ReportReady{
			Email:       evt.Email,
			FirstName:   evt.FirstName,
			LastName:    evt.LastName,
			ReportTitle: evt.ReportTitle,
			ReportURL:   evt.ReportURL,
		})
		if err != nil {
			b.logger.Warn("report ready email failed", "entry_id", evt.EntryID, "error", err)
		}
	}
	return nil
}

// storeReportMeta appends the report to the contact's bounded report
// list and refreshes the latest hash/url pointers, globally and per tag.
func (b *Bridge) storeReportMeta(ctx context.Context, contactID int64, evt events.GenerationCompleted, tagSlug string) error {
	reports, err := b.loadReports(ctx, contactID)
	if err != nil {
		return err
	}

	// Replace any prior record for the same entry, keeping the newest.
	kept := reports[:0]
	for _, rec := range reports {
		if rec.EntryHash != evt.EntryHash {
			kept = append(kept, rec)
		}
	}
	kept = append(kept, ReportRecord{
		EntryID:     evt.EntryID,
		EntryHash:   evt.EntryHash,
		ReportID:    evt.ReportID,
		ReportURL:   evt.ReportURL,
		GeneratedAt: nowFunc().Unix(),
	})
	if len(kept) > maxStoredReports {
		kept = kept[len(kept)-maxStoredReports:]
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("crm: encode report list: %w", err)
	}

	if err := b.client.SetMeta(ctx, contactID, MetaReports, string(raw)); err != nil {
		return fmt.Errorf("crm: store report list: %w", err)
	}
	if err := b.client.SetMeta(ctx, contactID, MetaLatestHash, evt.EntryHash); err != nil {
		return fmt.Errorf("crm: store latest hash: %w", err)
	}
	if err := b.client.SetMeta(ctx, contactID, MetaLatestURL, evt.ReportURL); err != nil {
		return fmt.Errorf("crm: store latest url: %w", err)
	}
	if tagSlug != "" {
		if err := b.client.SetMeta(ctx, contactID, MetaLatestHash+"_"+tagSlug, evt.EntryHash); err != nil {
			return fmt.Errorf("crm: store tag latest hash: %w", err)
		}
		if err := b.client.SetMeta(ctx, contactID, MetaLatestURL+"_"+tagSlug, evt.ReportURL); err != nil {
			return fmt.Errorf("crm: store tag latest url: %w", err)
		}
	}
	return nil
}

func (b *Bridge) loadReports(ctx context.Context, contactID int64) ([]ReportRecord, error) {
	raw, err := b.client.GetMeta(ctx, contactID, MetaReports)
	if err != nil {
		return nil, fmt.Errorf("crm: load report list: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var reports []ReportRecord
	if err := json.Unmarshal([]byte(raw), &reports); err != nil {
		// Corrupt meta is replaced rather than failing the event.
		b.logger.Warn("discarding unreadable report list meta", "contact_id", contactID, "error", err)
		return nil, nil
	}
	return reports, nil
}
