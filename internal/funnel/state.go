package funnel

import (
	"fmt"

	"github.com/cleaningpros/review-funnel/internal/locations"
)

// Step is a funnel screen.
type Step int

const (
	StepWelcome Step = iota
	StepForm
	StepReviewing
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepForm:
		return "form"
	case StepReviewing:
		return "reviewing"
	case StepComplete:
		return "complete"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	switch string(b) {
	case "welcome":
		*s = StepWelcome
	case "form":
		*s = StepForm
	case "reviewing":
		*s = StepReviewing
	case "complete":
		*s = StepComplete
	default:
		return fmt.Errorf("funnel: unknown step %q", b)
	}
	return nil
}

// IdentityStatus drives what the Welcome screen offers.
type IdentityStatus string

const (
	IdentityLoading     IdentityStatus = "loading"
	IdentityReady       IdentityStatus = "ready"
	IdentitySignedIn    IdentityStatus = "signed_in"
	IdentityUnavailable IdentityStatus = "unavailable"
)

// Outcome of one location in the posting loop.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
)

// LocationStatus is one row of the reviewing list and the closing summary.
type LocationStatus struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	ReviewURL string  `json:"review_url"`
	Outcome   Outcome `json:"outcome"`
	Current   bool    `json:"current"`
}

// Snapshot is everything the page needs to render the session.
type Snapshot struct {
	SessionID       string           `json:"session_id"`
	Step            Step             `json:"step"`
	Identity        IdentityStatus   `json:"identity"`
	IdentityError   string           `json:"identity_error,omitempty"`
	ManualAvailable bool             `json:"manual_available"`
	Draft           Draft            `json:"draft"`
	Index           int              `json:"index"`
	Total           int              `json:"total"`
	Current         *LocationStatus  `json:"current,omitempty"`
	Locations       []LocationStatus `json:"locations"`
	CompletedCount  int              `json:"completed_count"`
	OpeningNext     bool             `json:"opening_next"`
	Busy            bool             `json:"busy"`
	Error           string           `json:"error,omitempty"`
	Countdown       int              `json:"countdown,omitempty"`
	RedirectURL     string           `json:"redirect_url,omitempty"`
	MinReviewLength int              `json:"min_review_length"`
}

func (s *Session) snapshotLocked() Snapshot {
	draft := s.draft
	draft.CompletedLocations = append([]string{}, s.draft.CompletedLocations...)

	snap := Snapshot{
		SessionID:       s.id,
		Step:            s.step,
		Identity:        s.identity,
		IdentityError:   s.identErr,
		ManualAvailable: s.identity == IdentityUnavailable,
		Draft:           draft,
		Index:           s.index,
		Total:           s.cfg.Locations.Len(),
		CompletedCount:  len(draft.CompletedLocations),
		OpeningNext:     s.pending,
		Busy:            s.busy,
		Error:           s.errMsg,
		MinReviewLength: s.cfg.MinReviewLength,
	}

	for i, loc := range s.cfg.Locations.List() {
		status := LocationStatus{
			ID:        loc.ID,
			Name:      loc.Name,
			Address:   loc.Address,
			ReviewURL: loc.ReviewURL,
			Outcome:   s.outcomeLocked(loc),
			Current:   s.step == StepReviewing && i == s.index,
		}
		if status.Current {
			current := status
			snap.Current = &current
		}
		snap.Locations = append(snap.Locations, status)
	}

	if s.step == StepComplete {
		snap.Countdown = s.remaining
		snap.RedirectURL = s.cfg.RedirectURL
	}
	return snap
}

func (s *Session) outcomeLocked(loc locations.BusinessLocation) Outcome {
	if contains(s.draft.CompletedLocations, loc.ID) {
		return OutcomeCompleted
	}
	if o, ok := s.decided[loc.ID]; ok {
		return o
	}
	if s.step == StepComplete {
		return OutcomeSkipped
	}
	return OutcomePending
}
