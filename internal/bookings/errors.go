package bookings

import "errors"

var (
	// ErrBookingNotFound is returned when no booking has the given number.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrCustomerNotFound is returned when a booking has no customer row.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrMissingBookingNumber is returned for a blank booking number.
	ErrMissingBookingNumber = errors.New("booking number is required")
)
