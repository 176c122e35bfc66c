package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/cleaningpros/review-funnel/internal/feedback"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// SenderConfig selects and configures the e-mail provider.
type SenderConfig struct {
	Provider       string // auto, sendgrid, ses, stub
	FromEmail      string
	FromName       string
	SendGridAPIKey string
	SES            *sesv2.Client
}

// NewEmailSender picks a provider. "auto" prefers SendGrid, then SES, and
// falls back to the stub when neither is usable.
func NewEmailSender(cfg SenderConfig, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	useSendGrid := cfg.SendGridAPIKey != "" && cfg.FromEmail != ""
	useSES := cfg.SES != nil && cfg.FromEmail != ""

	switch {
	case (provider == "sendgrid" || provider == "auto" || provider == "") && useSendGrid:
		logger.Info("sendgrid email sender initialized for alerts")
		return NewSendGridSender(SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger)
	case (provider == "ses" || provider == "auto" || provider == "") && useSES:
		logger.Info("ses email sender initialized for alerts")
		return NewSESSender(cfg.SES, SESConfig{FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger)
	default:
		logger.Warn("alert e-mail disabled, using stub sender", "provider", provider)
		return NewStubEmailSender(logger)
	}
}

// RecleanAlerter e-mails the operations inbox when a customer asks for a
// reclean.
type RecleanAlerter struct {
	sender EmailSender
	to     string
	tz     *time.Location
	logger *logging.Logger
}

// NewRecleanAlerter builds the alerter. An empty to disables alerts.
func NewRecleanAlerter(sender EmailSender, to string, tz *time.Location, logger *logging.Logger) *RecleanAlerter {
	if logger == nil {
		logger = logging.Default()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &RecleanAlerter{sender: sender, to: strings.TrimSpace(to), tz: tz, logger: logger}
}

func (a *RecleanAlerter) RecleanAlert(ctx context.Context, entry feedback.Entry) error {
	if a.sender == nil || a.to == "" {
		a.logger.Debug("notify: reclean alert skipped, no recipient configured", "feedback_id", entry.ID)
		return nil
	}
	msg := RecleanMessage(entry, a.tz)
	msg.To = a.to
	msg.ToName = "Operations"
	if err := a.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: reclean alert: %w", err)
	}
	return nil
}

// RecleanCategory tags reclean alerts at the e-mail provider.
const RecleanCategory = "reclean-alert"

// RecleanMessage renders the alert for entry without a recipient.
func RecleanMessage(entry feedback.Entry, tz *time.Location) EmailMessage {
	booking := entry.BookingNumber
	if booking == "" {
		booking = "(no booking number)"
	}
	customer := entry.Name
	if customer == "" {
		customer = "A customer"
	}
	comments := strings.TrimSpace(entry.Feedback)
	if comments == "" {
		comments = "(none)"
	}
	when := entry.CreatedAt
	if when.IsZero() {
		when = time.Now()
	}

	lines := []string{
		fmt.Sprintf("%s has asked for a reclean.", customer),
		"",
		fmt.Sprintf("Booking: %s", booking),
		fmt.Sprintf("Rating: %d/5", entry.Rating),
		fmt.Sprintf("Email: %s", entry.Email),
		fmt.Sprintf("Submitted: %s", when.In(tz).Format("Monday 2 January 2006, 3:04 pm")),
		"",
		"Comments:",
		comments,
	}
	body := strings.Join(lines, "\n")

	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = html.EscapeString(line)
	}

	return EmailMessage{
		ReplyTo:  strings.TrimSpace(entry.Email),
		Category: RecleanCategory,
		Subject:  fmt.Sprintf("Reclean requested: booking %s", booking),
		Body:     body,
		HTML:     "<p>" + strings.Join(escaped, "<br>") + "</p>",
	}
}

var _ feedback.Alerter = (*RecleanAlerter)(nil)
