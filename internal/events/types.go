package events

// Event type identifiers for the report pipeline.
const (
	TypeSubmissionPending   = "report.submission_pending.v1"
	TypeGenerationCompleted = "report.generation_completed.v1"
	TypeGenerationFailed    = "report.generation_failed.v1"
)

// SubmissionPending fires once a submission has been scored and its
// generation job enqueued. Contact details come from the normalized
// submission fields.
type SubmissionPending struct {
	EntryID   int64  `json:"entry_id"`
	EntryHash string `json:"entry_hash"`
	FormID    int64  `json:"form_id"`
	ReportID  int64  `json:"report_id"`
	ReportURL string `json:"report_url"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	TagSlug   string `json:"tag_slug,omitempty"`
}

func (SubmissionPending) EventType() string { return TypeSubmissionPending }

// GenerationCompleted fires when personalized content for a submission
// has been generated and stored.
type GenerationCompleted struct {
	EntryID     int64  `json:"entry_id"`
	EntryHash   string `json:"entry_hash"`
	FormID      int64  `json:"form_id"`
	ReportID    int64  `json:"report_id"`
	ReportTitle string `json:"report_title"`
	ReportURL   string `json:"report_url"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	TagSlug     string `json:"tag_slug,omitempty"`
}

func (GenerationCompleted) EventType() string { return TypeGenerationCompleted }

// GenerationFailed fires when a generation job exhausts its attempts.
type GenerationFailed struct {
	EntryID   int64  `json:"entry_id"`
	EntryHash string `json:"entry_hash"`
	Reason    string `json:"reason"`
}

func (GenerationFailed) EventType() string { return TypeGenerationFailed }
