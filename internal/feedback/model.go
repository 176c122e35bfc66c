package feedback

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Entry is a stored feedback row.
type Entry struct {
	ID             string    `json:"id"`
	BookingNumber  string    `json:"booking_number"`
	FeedbackOption string    `json:"feedback_option"`
	Rating         int       `json:"rating"`
	Feedback       string    `json:"feedback"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEntry is the insert payload.
type NewEntry struct {
	BookingNumber  string `json:"booking_number"`
	FeedbackOption string `json:"feedback_option"`
	Rating         int    `json:"rating"`
	Feedback       string `json:"feedback"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

// Validate checks the insert payload.
func (n *NewEntry) Validate() error {
	if n.FeedbackOption == "" {
		return ErrOptionRequired
	}
	if _, ok := LookupOption(n.FeedbackOption); !ok {
		return ErrUnknownOption
	}
	if n.Rating < MinRating || n.Rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}
