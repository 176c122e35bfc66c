package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cleaningpros/review-funnel/internal/bookings"
	"github.com/cleaningpros/review-funnel/internal/observability/metrics"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// Alerter notifies operations staff about an entry that needs a reclean.
type Alerter interface {
	RecleanAlert(ctx context.Context, entry Entry) error
}

// Service stores feedback, resolves pre-fill and raises reclean alerts.
type Service struct {
	repo     Repository
	contacts bookings.ContactLookup
	alerter  Alerter
	metrics  *metrics.FeedbackMetrics
	logger   *logging.Logger
}

// NewService wires the feedback service. contacts and alerter may be nil.
func NewService(repo Repository, contacts bookings.ContactLookup, alerter Alerter, m *metrics.FeedbackMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("feedback: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, contacts: contacts, alerter: alerter, metrics: m, logger: logger}
}

// Submit validates and stores one entry.
func (s *Service) Submit(ctx context.Context, req *NewEntry) (*Entry, error) {
	ctx, span := feedbackTracer.Start(ctx, "feedback.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("reviewfunnel.feedback_option", req.FeedbackOption),
		attribute.Int("reviewfunnel.rating", req.Rating),
	)

	if err := req.Validate(); err != nil {
		s.metrics.ObserveSubmission(req.FeedbackOption, "rejected")
		return nil, err
	}

	entry, err := s.repo.Insert(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSubmission(req.FeedbackOption, "failed")
		s.logger.Error("feedback insert failed", "booking_number", req.BookingNumber, "error", err)
		return nil, fmt.Errorf("feedback: submit: %w", err)
	}
	s.metrics.ObserveSubmission(entry.FeedbackOption, "stored")
	s.logger.Info("feedback stored", "id", entry.ID, "booking_number", entry.BookingNumber, "option", entry.FeedbackOption, "rating", entry.Rating)

	if entry.FeedbackOption == OptionReclean {
		s.alert(ctx, *entry)
	}
	return entry, nil
}

func (s *Service) alert(ctx context.Context, entry Entry) {
	if s.alerter == nil {
		return
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.alerter.RecleanAlert(alertCtx, entry); err != nil {
		s.metrics.ObserveAlert("failed")
		s.logger.Error("reclean alert failed", "id", entry.ID, "booking_number", entry.BookingNumber, "error", err)
		return
	}
	s.metrics.ObserveAlert("sent")
}

// Prefill returns the booking's contact, or nil when it cannot be resolved.
// Failures are never surfaced to the visitor.
func (s *Service) Prefill(ctx context.Context, bookingNumber string) *bookings.Contact {
	if s.contacts == nil || bookingNumber == "" {
		return nil
	}
	contact, err := s.contacts.ContactForBooking(ctx, bookingNumber)
	switch {
	case err == nil:
		s.metrics.ObservePrefill("hit")
		return contact
	case errors.Is(err, bookings.ErrBookingNotFound), errors.Is(err, bookings.ErrCustomerNotFound):
		s.metrics.ObservePrefill("miss")
	default:
		s.metrics.ObservePrefill("error")
		s.logger.Warn("feedback prefill failed", "booking_number", bookingNumber, "error", err)
	}
	return nil
}
