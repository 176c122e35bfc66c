// Package funnel drives the per-tab review funnel: sign-in, the review
// form, the location-by-location posting loop and the closing countdown.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cleaningpros/review-funnel/internal/clock"
	"github.com/cleaningpros/review-funnel/internal/identity"
	"github.com/cleaningpros/review-funnel/internal/locations"
	"github.com/cleaningpros/review-funnel/internal/observability/metrics"
	"github.com/cleaningpros/review-funnel/internal/reviews"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

var funnelTracer = otel.Tracer("reviewfunnel.internal.funnel")

const (
	DefaultAdvanceDelay      = 1500 * time.Millisecond
	DefaultCompleteCountdown = 10 * time.Second
	DefaultMinReviewLength   = 50
	DefaultRating            = 5
)

// Opener opens a URL in a new browsing context. Fire and forget.
type Opener interface {
	Open(url string) error
}

// Navigator performs a hard navigation of the current tab.
type Navigator interface {
	Navigate(url string) error
}

// View receives a snapshot after every transition.
type View interface {
	Render(Snapshot)
}

type Config struct {
	Locations         *locations.Registry
	Reviews           reviews.Repository
	Opener            Opener
	Navigator         Navigator
	View              View
	Clock             clock.Clock
	AdvanceDelay      time.Duration
	CompleteCountdown time.Duration
	RedirectURL       string
	MinReviewLength   int
	Metrics           *metrics.FunnelMetrics
	Logger            *logging.Logger
}

// Draft is the in-progress review intent.
type Draft struct {
	ID                 string   `json:"id,omitempty"`
	CustomerName       string   `json:"customer_name"`
	CustomerEmail      string   `json:"customer_email"`
	Picture            string   `json:"picture,omitempty"`
	Rating             int      `json:"rating"`
	ReviewText         string   `json:"review_text"`
	CompletedLocations []string `json:"completed_locations"`
}

// SubmitRequest carries the review form fields.
type SubmitRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Session is one tab's funnel. All transitions are serialized by mu.
type Session struct {
	id      string
	cfg     Config
	clock   clock.Clock
	logger  *logging.Logger
	metrics *metrics.FunnelMetrics

	mu        sync.Mutex
	step      Step
	identity  IdentityStatus
	identErr  string
	draft     Draft
	index     int
	decided   map[string]Outcome
	busy      bool
	pending   bool
	errMsg    string
	remaining int
	closed    bool

	openTimer  clock.Timer
	countTimer clock.Timer
}

// NewSession builds a session in the Welcome step.
func NewSession(id string, cfg Config) *Session {
	if cfg.Locations == nil {
		cfg.Locations = locations.Default()
	}
	if cfg.Reviews == nil {
		panic("funnel: reviews repository required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = DefaultAdvanceDelay
	}
	if cfg.CompleteCountdown <= 0 {
		cfg.CompleteCountdown = DefaultCompleteCountdown
	}
	if cfg.MinReviewLength <= 0 {
		cfg.MinReviewLength = DefaultMinReviewLength
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Session{
		id:       id,
		cfg:      cfg,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		step:     StepWelcome,
		identity: IdentityLoading,
		draft:    Draft{Rating: DefaultRating, CompletedLocations: []string{}},
		decided:  make(map[string]Outcome),
	}
}

func (s *Session) ID() string { return s.id }

// Snapshot returns the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Publish pushes the current snapshot to the view.
func (s *Session) Publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked()
}

// IdentityResolved consumes the sign-in bridge outcome.
func (s *Session) IdentityResolved(ev identity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.ObserveIdentity(ev.Kind.String())
	if s.closed || s.step != StepWelcome {
		return
	}

	switch ev.Kind {
	case identity.EventSucceeded:
		s.identity = IdentitySignedIn
		s.draft.CustomerName = ev.Profile.Name
		s.draft.CustomerEmail = ev.Profile.Email
		s.draft.Picture = ev.Profile.Picture
		s.draft.Rating = DefaultRating
		s.draft.ReviewText = ""
		s.draft.CompletedLocations = []string{}
		s.transitionLocked(StepForm)
	case identity.EventTimedOut:
		s.identity = IdentityUnavailable
		s.publishLocked()
	default:
		s.identity = IdentityUnavailable
		if ev.Err != nil {
			s.identErr = userFacingIdentityError(ev.Err)
		}
		s.publishLocked()
	}
}

// IdentityReady marks the sign-in button as rendered.
func (s *Session) IdentityReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepWelcome || s.identity != IdentityLoading {
		return
	}
	s.identity = IdentityReady
	s.publishLocked()
}

// Manual enters the form without a signed-in identity.
func (s *Session) Manual() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepWelcome {
		return
	}
	s.draft.Rating = DefaultRating
	s.transitionLocked(StepForm)
}

// Submit validates the form and inserts the intent. On success the session
// enters Reviewing and opens the first location.
func (s *Session) Submit(ctx context.Context, req SubmitRequest) error {
	ctx, span := funnelTracer.Start(ctx, "funnel.submit")
	defer span.End()

	s.mu.Lock()
	if s.closed || s.step != StepForm {
		s.mu.Unlock()
		return ErrWrongStep
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = s.draft.CustomerName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = s.draft.CustomerEmail
	}
	if err := s.validateLocked(req, name, email); err != nil {
		s.errMsg = s.formMessage(err)
		s.publishLocked()
		s.mu.Unlock()
		return err
	}

	s.draft.Rating = req.Rating
	s.draft.ReviewText = req.Text
	s.draft.CustomerName = name
	s.draft.CustomerEmail = email
	s.busy = true
	s.errMsg = ""
	s.publishLocked()
	s.mu.Unlock()

	intent, err := s.cfg.Reviews.Insert(ctx, &reviews.NewReviewIntent{
		CustomerName:  name,
		CustomerEmail: email,
		Rating:        req.Rating,
		ReviewText:    req.Text,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.closed {
		return ErrClosed
	}
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveStoreError("insert")
		s.logger.Error("review intent insert failed", "session_id", s.id, "error", err)
		s.errMsg = "We couldn't save your review. Please try again."
		s.publishLocked()
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.draft.ID = intent.ID
	s.draft.CompletedLocations = []string{}
	span.SetAttributes(attribute.String("reviewfunnel.intent_id", intent.ID))
	s.logger.Info("review intent stored", "session_id", s.id, "intent_id", intent.ID, "rating", req.Rating)

	s.index = 0
	s.transitionLocked(StepReviewing)
	s.openCurrentLocked()
	return nil
}

// MarkComplete records the given location as reviewed, persists the new
// set by the captured row id and only then advances. locationID must name
// the current location; stale repeats are ignored.
func (s *Session) MarkComplete(ctx context.Context, locationID string) error {
	ctx, span := funnelTracer.Start(ctx, "funnel.mark_complete")
	defer span.End()
	span.SetAttributes(attribute.String("reviewfunnel.location_id", locationID))

	s.mu.Lock()
	current, err := s.actionableLocked(locationID)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	next := s.draft.CompletedLocations
	if !contains(next, current.ID) {
		next = append(append([]string{}, next...), current.ID)
	}
	draftID := s.draft.ID
	if draftID == "" {
		s.logger.Warn("no intent id captured, recording completion locally", "session_id", s.id)
		s.draft.CompletedLocations = next
		s.decided[current.ID] = OutcomeCompleted
		s.metrics.ObserveLocationAction(current.ID, "complete")
		s.advanceLocked()
		s.mu.Unlock()
		return nil
	}
	s.busy = true
	s.errMsg = ""
	s.publishLocked()
	s.mu.Unlock()

	stored, err := s.cfg.Reviews.MarkCompleted(ctx, draftID, next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.closed {
		return ErrClosed
	}
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveStoreError("update")
		s.logger.Error("review intent update failed", "session_id", s.id, "intent_id", draftID, "location_id", current.ID, "error", err)
		s.errMsg = "We couldn't record that review. Please try again."
		s.publishLocked()
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.draft.CompletedLocations = s.clampToRegistry(stored.CompletedLocations)
	s.decided[current.ID] = OutcomeCompleted
	s.metrics.ObserveLocationAction(current.ID, "complete")
	s.advanceLocked()
	return nil
}

// Skip advances past the given location without recording it.
func (s *Session) Skip(locationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.actionableLocked(locationID)
	if err != nil {
		return err
	}
	s.errMsg = ""
	s.decided[current.ID] = OutcomeSkipped
	s.metrics.ObserveLocationAction(current.ID, "skip")
	s.advanceLocked()
	return nil
}

// OpenAgain reopens the current location's review page.
func (s *Session) OpenAgain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepReviewing {
		return ErrWrongStep
	}
	if s.openTimer != nil {
		s.openTimer.Stop()
		s.openTimer = nil
		s.pending = false
	}
	loc, _ := s.cfg.Locations.At(s.index)
	s.metrics.ObserveLocationAction(loc.ID, "open_again")
	s.openCurrentLocked()
	return nil
}

// Close stops every timer. Nothing is published afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimersLocked()
}

func (s *Session) validateLocked(req SubmitRequest, name, email string) error {
	if req.Rating < reviews.MinRating || req.Rating > reviews.MaxRating {
		return ErrInvalidRating
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Text)) < s.cfg.MinReviewLength {
		return ErrReviewTooShort
	}
	if name == "" || email == "" {
		return ErrMissingContact
	}
	return nil
}

func (s *Session) formMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRating):
		return "Please choose a rating from 1 to 5 stars."
	case errors.Is(err, ErrReviewTooShort):
		return fmt.Sprintf("Please write at least %d characters about your experience.", s.cfg.MinReviewLength)
	case errors.Is(err, ErrMissingContact):
		return "Please enter your name and email."
	default:
		return err.Error()
	}
}

// actionableLocked returns the current location if a complete or skip on
// locationID may proceed now.
func (s *Session) actionableLocked(locationID string) (locations.BusinessLocation, error) {
	if s.closed || s.step != StepReviewing {
		return locations.BusinessLocation{}, ErrWrongStep
	}
	if s.busy {
		return locations.BusinessLocation{}, ErrBusy
	}
	current, ok := s.cfg.Locations.At(s.index)
	if !ok {
		return locations.BusinessLocation{}, ErrWrongStep
	}
	if locationID != "" && locationID != current.ID {
		return locations.BusinessLocation{}, ErrStaleLocation
	}
	return current, nil
}

func (s *Session) advanceLocked() {
	s.index++
	if s.index >= s.cfg.Locations.Len() {
		s.completeLocked()
		return
	}
	if s.openTimer != nil {
		s.openTimer.Stop()
	}
	s.pending = true
	idx := s.index
	s.openTimer = s.clock.AfterFunc(s.cfg.AdvanceDelay, func() { s.openDelayed(idx) })
	s.publishLocked()
}

func (s *Session) openDelayed(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepReviewing || s.index != idx {
		return
	}
	s.openTimer = nil
	s.pending = false
	s.openCurrentLocked()
}

func (s *Session) openCurrentLocked() {
	loc, ok := s.cfg.Locations.At(s.index)
	if !ok {
		return
	}
	if s.cfg.Opener != nil {
		if err := s.cfg.Opener.Open(loc.ReviewURL); err != nil {
			s.logger.Warn("open review page failed", "session_id", s.id, "location_id", loc.ID, "error", err)
		}
	}
	s.publishLocked()
}

func (s *Session) completeLocked() {
	if s.openTimer != nil {
		s.openTimer.Stop()
		s.openTimer = nil
	}
	s.pending = false
	s.remaining = int(s.cfg.CompleteCountdown / time.Second)
	if s.remaining < 1 {
		s.remaining = 1
	}
	s.logger.Info("review funnel complete",
		"session_id", s.id,
		"intent_id", s.draft.ID,
		"completed", len(s.draft.CompletedLocations),
		"total", s.cfg.Locations.Len(),
	)
	s.transitionLocked(StepComplete)
	s.scheduleTickLocked()
}

func (s *Session) scheduleTickLocked() {
	if s.countTimer != nil {
		s.countTimer.Stop()
	}
	s.countTimer = s.clock.AfterFunc(time.Second, s.tick)
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepComplete {
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.publishLocked()
		s.scheduleTickLocked()
		return
	}
	s.countTimer = nil
	s.publishLocked()
	if s.cfg.Navigator != nil {
		if err := s.cfg.Navigator.Navigate(s.cfg.RedirectURL); err != nil {
			s.logger.Warn("redirect failed", "session_id", s.id, "error", err)
		}
	}
}

func (s *Session) transitionLocked(step Step) {
	s.step = step
	s.errMsg = ""
	s.metrics.ObserveTransition(step.String())
	s.publishLocked()
}

func (s *Session) publishLocked() {
	if s.closed || s.cfg.View == nil {
		return
	}
	s.cfg.View.Render(s.snapshotLocked())
}

func (s *Session) stopTimersLocked() {
	if s.openTimer != nil {
		s.openTimer.Stop()
		s.openTimer = nil
	}
	if s.countTimer != nil {
		s.countTimer.Stop()
		s.countTimer = nil
	}
}

// clampToRegistry drops unknown and duplicate ids from a stored set.
func (s *Session) clampToRegistry(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.cfg.Locations.Contains(id) && !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func userFacingIdentityError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, identity.ErrMalformedCredential), errors.Is(err, identity.ErrInvalidCredential):
		return "We couldn't read your Google sign-in. Please continue without it."
	case errors.Is(err, identity.ErrMissingClientID):
		return ""
	default:
		return "Google sign-in is unavailable right now."
	}
}
