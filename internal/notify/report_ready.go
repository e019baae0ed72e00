package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

// ReportReady describes a finished report for the notification email.
type ReportReady struct {
	Email       string
	FirstName   string
	LastName    string
	ReportTitle string
	ReportURL   string
}

// ReportNotifier emails readers when their personalized report is ready.
type ReportNotifier struct {
	sender EmailSender
	logger *logging.Logger
}

// NewReportNotifier creates a report notifier. A nil sender disables sending.
func NewReportNotifier(sender EmailSender, logger *logging.Logger) *ReportNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportNotifier{sender: sender, logger: logger}
}

// NotifyReportReady sends the "report ready" email for a completed generation.
func (n *ReportNotifier) NotifyReportReady(ctx context.Context, ready ReportReady) error {
	if n.sender == nil {
		n.logger.Debug("report ready notification skipped, no email sender configured", "email", ready.Email)
		return nil
	}
	if ready.Email == "" {
		return fmt.Errorf("notify: report ready notification requires an email address")
	}

	title := ready.ReportTitle
	if title == "" {
		title = "Your assessment report"
	}

	greeting := "Hi"
	if ready.FirstName != "" {
		greeting = "Hi " + ready.FirstName
	}

	var body strings.Builder
	body.WriteString(greeting + ",\n\n")
	body.WriteString(fmt.Sprintf("%s is ready to view.\n\n", title))
	if ready.ReportURL != "" {
		body.WriteString("View your report: " + ready.ReportURL + "\n\n")
	}
	body.WriteString("Thanks for completing the assessment.\n")

	msg := EmailMessage{
		To:      ready.Email,
		ToName:  strings.TrimSpace(ready.FirstName + " " + ready.LastName),
		Subject: title + " is ready",
		Body:    body.String(),
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: failed to send report ready email: %w", err)
	}
	return nil
}
