package funnel

import "errors"

var (
	ErrWrongStep       = errors.New("funnel: action not valid in current step")
	ErrBusy            = errors.New("funnel: a save is already in progress")
	ErrStaleLocation   = errors.New("funnel: location is no longer current")
	ErrClosed          = errors.New("funnel: session closed")
	ErrStore           = errors.New("funnel: record store failure")
	ErrInvalidRating   = errors.New("funnel: rating must be between 1 and 5")
	ErrReviewTooShort  = errors.New("funnel: review text is too short")
	ErrMissingContact  = errors.New("funnel: name and email are required")
	ErrSessionNotFound = errors.New("funnel: session not found")
)
