package feedback

import "errors"

var (
	// ErrOptionRequired is returned when no sentiment option was chosen.
	ErrOptionRequired = errors.New("feedback option is required")

	// ErrUnknownOption is returned for an option outside the fixed set.
	ErrUnknownOption = errors.New("unknown feedback option")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrAlreadySubmitted is returned when a form that succeeded is submitted again.
	ErrAlreadySubmitted = errors.New("feedback already submitted")
)
