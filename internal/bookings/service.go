package bookings

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cleaningpros/review-funnel/pkg/logging"
)

var bookingsTracer = otel.Tracer("reviewfunnel.internal.bookings")

// ContactLookup resolves a booking number to the customer's contact details.
type ContactLookup interface {
	ContactForBooking(ctx context.Context, number string) (*Contact, error)
}

// Service looks up the customer behind a booking number.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ContactForBooking walks booking number -> booking id -> customer.
func (s *Service) ContactForBooking(ctx context.Context, number string) (*Contact, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.contact_for_booking")
	defer span.End()
	span.SetAttributes(attribute.String("reviewfunnel.booking_number", number))

	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrMissingBookingNumber
	}

	booking, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	customer, err := s.repo.FindCustomerByBooking(ctx, booking.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Debug("booking contact resolved", "booking_number", number, "booking_id", booking.ID)
	return &Contact{
		BookingNumber: number,
		Name:          customer.FullName(),
		Email:         customer.Email,
	}, nil
}
