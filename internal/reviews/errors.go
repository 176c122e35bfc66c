package reviews

import "errors"

var (
	// ErrNotFound is returned when no intent has the requested id.
	ErrNotFound = errors.New("review intent not found")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrMissingCustomer is returned when name or email is blank.
	ErrMissingCustomer = errors.New("customer name and email are required")

	// ErrMissingID is returned when an update has no row id.
	ErrMissingID = errors.New("review intent id is required")
)
