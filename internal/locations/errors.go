package locations

import "errors"

var (
	// ErrMissingID is returned when a configured location has no id
	ErrMissingID = errors.New("locations: location id is required")

	// ErrDuplicateID is returned when two locations share an id
	ErrDuplicateID = errors.New("locations: duplicate location id")

	// ErrEmpty is returned when an override configures no locations
	ErrEmpty = errors.New("locations: at least one location is required")
)
