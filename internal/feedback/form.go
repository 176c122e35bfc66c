package feedback

import (
	"context"
	"errors"
	"strings"

	"github.com/cleaningpros/review-funnel/internal/bookings"
)

// Stage is a screen of the feedback page.
type Stage int

const (
	StageSelecting Stage = iota
	StageDetail
	StageSuccess
)

func (s Stage) String() string {
	switch s {
	case StageSelecting:
		return "selecting"
	case StageDetail:
		return "detail"
	case StageSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Submitter stores a validated entry.
type Submitter interface {
	Submit(ctx context.Context, req *NewEntry) (*Entry, error)
}

// Form holds one visitor's feedback in progress.
type Form struct {
	BookingNumber string
	Option        string
	Rating        int
	Text          string
	Name          string
	Email         string
	Error         string

	stage Stage
}

// NewForm starts a form, pre-filled from the booking contact when known.
func NewForm(bookingNumber string, contact *bookings.Contact) *Form {
	f := &Form{
		BookingNumber: strings.TrimSpace(bookingNumber),
		Rating:        MaxRating,
	}
	if contact != nil {
		f.Name = contact.Name
		f.Email = contact.Email
	}
	return f
}

func (f *Form) Stage() Stage { return f.stage }

// SelectOption picks a sentiment and seeds the rating from it.
func (f *Form) SelectOption(value string) error {
	opt, ok := LookupOption(value)
	if !ok {
		return ErrUnknownOption
	}
	f.Option = opt.Value
	f.Rating = opt.DefaultRating
	f.Error = ""
	f.stage = StageDetail
	return nil
}

// ClearOption returns to the option picker.
func (f *Form) ClearOption() {
	if f.stage == StageSuccess {
		return
	}
	f.Option = ""
	f.stage = StageSelecting
}

// SetRating overrides the seeded rating.
func (f *Form) SetRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	f.Rating = rating
	return nil
}

func (f *Form) SetText(text string) {
	f.Text = text
}

// Submit stores the form. Without an option it fails before touching the
// store. A failed store call leaves the form resubmittable.
func (f *Form) Submit(ctx context.Context, s Submitter) (*Entry, error) {
	if f.stage == StageSuccess {
		return nil, ErrAlreadySubmitted
	}
	if f.Option == "" {
		f.Error = "Please select a feedback option."
		return nil, ErrOptionRequired
	}

	entry, err := s.Submit(ctx, &NewEntry{
		BookingNumber:  f.BookingNumber,
		FeedbackOption: f.Option,
		Rating:         f.Rating,
		Feedback:       f.Text,
		Name:           f.Name,
		Email:          f.Email,
	})
	if err != nil {
		f.Error = submitMessage(err)
		return nil, err
	}
	f.Error = ""
	f.stage = StageSuccess
	return entry, nil
}

func submitMessage(err error) string {
	switch {
	case errors.Is(err, ErrOptionRequired):
		return "Please select a feedback option."
	case errors.Is(err, ErrInvalidRating):
		return "Please choose a rating from 1 to 5 stars."
	case errors.Is(err, ErrUnknownOption):
		return "Please select one of the feedback options."
	default:
		return "Failed to submit feedback. Please try again."
	}
}
