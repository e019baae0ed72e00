package crm

import "context"

// Contact is a CRM subscriber keyed by email.
type Contact struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ReportRecord is one finished report stored on a contact.
type ReportRecord struct {
	EntryID     int64  `json:"entry_id"`
	EntryHash   string `json:"entry_hash"`
	ReportID    int64  `json:"report_id"`
	ReportURL   string `json:"report_url"`
	GeneratedAt int64  `json:"generated_at"`
}

// Client abstracts the CRM backend. Implementations must be idempotent:
// attaching a tag a contact already has, or detaching one it lacks, is a
// no-op, and UpsertContact fills name fields only when they are empty.
type Client interface {
	UpsertContact(ctx context.Context, email, firstName, lastName string) (*Contact, error)
	AttachTag(ctx context.Context, contactID int64, tagSlug string) error
	DetachTag(ctx context.Context, contactID int64, tagSlug string) error
	GetMeta(ctx context.Context, contactID int64, key string) (string, error)
	SetMeta(ctx context.Context, contactID int64, key, value string) error
}
