package funnel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaningpros/review-funnel/internal/clock"
	"github.com/cleaningpros/review-funnel/internal/identity"
	"github.com/cleaningpros/review-funnel/internal/locations"
	"github.com/cleaningpros/review-funnel/internal/reviews"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

const redirect = "https://www.cleaningprofessionals.com.au/"

var longText = strings.Repeat("Spotless kitchen. ", 4)

type flakyRepo struct {
	*reviews.InMemoryRepository
	mu        sync.Mutex
	insertErr error
	updateErr error
	inserts   int
	updates   int
}

func (r *flakyRepo) Insert(ctx context.Context, req *reviews.NewReviewIntent) (*reviews.ReviewIntent, error) {
	r.mu.Lock()
	r.inserts++
	err := r.insertErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.InMemoryRepository.Insert(ctx, req)
}

func (r *flakyRepo) MarkCompleted(ctx context.Context, id string, locs []string) (*reviews.ReviewIntent, error) {
	r.mu.Lock()
	r.updates++
	err := r.updateErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.InMemoryRepository.MarkCompleted(ctx, id, locs)
}

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	opened    []string
	navigated []string
}

func (r *recorder) Render(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) Open(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, url)
	return nil
}

func (r *recorder) Navigate(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigated = append(r.navigated, url)
	return nil
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) openedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

func (r *recorder) navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.navigated...)
}

type fixture struct {
	session *Session
	repo    *flakyRepo
	rec     *recorder
	clock   *clock.Fake
	reg     *locations.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &flakyRepo{InMemoryRepository: reviews.NewInMemoryRepository()}
	rec := &recorder{}
	fake := clock.NewFake(time.Unix(0, 0))
	reg := locations.Default()
	s := NewSession("sess-1", Config{
		Locations:         reg,
		Reviews:           repo,
		Opener:            rec,
		Navigator:         rec,
		View:              rec,
		Clock:             fake,
		AdvanceDelay:      1500 * time.Millisecond,
		CompleteCountdown: 10 * time.Second,
		RedirectURL:       redirect,
		Logger:            logging.NewWithWriter(&bytes.Buffer{}, "debug"),
	})
	return &fixture{session: s, repo: repo, rec: rec, clock: fake, reg: reg}
}

func (f *fixture) signIn() {
	f.session.IdentityResolved(identity.Event{
		Kind:    identity.EventSucceeded,
		Profile: &identity.Profile{Name: "Jane Doe", Email: "jane@example.com", Picture: "https://x/y.png"},
	})
}

func (f *fixture) reachReviewing(t *testing.T) {
	t.Helper()
	f.signIn()
	require.NoError(t, f.session.Submit(context.Background(), SubmitRequest{Rating: 5, Text: longText}))
}

func TestSignInPopulatesDraftAndEntersForm(t *testing.T) {
	f := newFixture(t)
	f.signIn()

	snap := f.session.Snapshot()
	assert.Equal(t, StepForm, snap.Step)
	assert.Equal(t, "Jane Doe", snap.Draft.CustomerName)
	assert.Equal(t, "jane@example.com", snap.Draft.CustomerEmail)
	assert.Equal(t, 5, snap.Draft.Rating)
	assert.Equal(t, "", snap.Draft.ReviewText)
	assert.Empty(t, snap.Draft.CompletedLocations)
	assert.Zero(t, f.repo.inserts, "sign-in alone must not insert")
}

func TestIdentityFailureOffersManualPath(t *testing.T) {
	for _, kind := range []identity.EventKind{identity.EventFailed, identity.EventTimedOut} {
		f := newFixture(t)
		f.session.IdentityResolved(identity.Event{Kind: kind, Err: identity.ErrScriptLoad})

		snap := f.session.Snapshot()
		assert.Equal(t, StepWelcome, snap.Step)
		assert.True(t, snap.ManualAvailable)

		f.session.Manual()
		assert.Equal(t, StepForm, f.session.Snapshot().Step)
		assert.Equal(t, "", f.session.Snapshot().Draft.CustomerEmail)
	}
}

func TestLateIdentityAfterManualIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.session.IdentityResolved(identity.Event{Kind: identity.EventTimedOut, Err: identity.ErrTimedOut})
	f.session.Manual()
	f.signIn()

	snap := f.session.Snapshot()
	assert.Equal(t, StepForm, snap.Step)
	assert.Equal(t, "", snap.Draft.CustomerName)
}

func TestMalformedCredentialShowsError(t *testing.T) {
	f := newFixture(t)
	f.session.IdentityResolved(identity.Event{Kind: identity.EventFailed, Err: identity.ErrMalformedCredential})
	snap := f.session.Snapshot()
	assert.Equal(t, StepWelcome, snap.Step)
	assert.NotEmpty(t, snap.IdentityError)
	assert.True(t, snap.ManualAvailable)
}

func TestSubmitValidationNeverReachesStore(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	ctx := context.Background()

	assert.ErrorIs(t, f.session.Submit(ctx, SubmitRequest{Rating: 0, Text: longText}), ErrInvalidRating)
	assert.ErrorIs(t, f.session.Submit(ctx, SubmitRequest{Rating: 6, Text: longText}), ErrInvalidRating)
	assert.ErrorIs(t, f.session.Submit(ctx, SubmitRequest{Rating: 5, Text: "too short"}), ErrReviewTooShort)
	assert.Zero(t, f.repo.inserts)
	assert.Equal(t, StepForm, f.session.Snapshot().Step)
	assert.NotEmpty(t, f.session.Snapshot().Error)
}

func TestManualSubmitRequiresContact(t *testing.T) {
	f := newFixture(t)
	f.session.IdentityResolved(identity.Event{Kind: identity.EventFailed, Err: identity.ErrMissingClientID})
	f.session.Manual()

	err := f.session.Submit(context.Background(), SubmitRequest{Rating: 4, Text: longText})
	assert.ErrorIs(t, err, ErrMissingContact)

	require.NoError(t, f.session.Submit(context.Background(), SubmitRequest{Rating: 4, Text: longText, Name: "Sam", Email: "sam@example.com"}))
	assert.Equal(t, StepReviewing, f.session.Snapshot().Step)
}

func TestStoredRatingMatchesSelection(t *testing.T) {
	for r := 1; r <= 5; r++ {
		f := newFixture(t)
		f.signIn()
		require.NoError(t, f.session.Submit(context.Background(), SubmitRequest{Rating: r, Text: longText}))

		stored, err := f.repo.GetByID(context.Background(), f.session.Snapshot().Draft.ID)
		require.NoError(t, err)
		assert.Equal(t, r, stored.Rating)
	}
}

func TestSubmitOpensFirstLocation(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)

	snap := f.session.Snapshot()
	assert.Equal(t, StepReviewing, snap.Step)
	assert.NotEmpty(t, snap.Draft.ID)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "melbourne", snap.Current.ID)
	assert.Equal(t, []string{f.reg.List()[0].ReviewURL}, f.rec.openedURLs())
}

func TestInsertFailureStaysInForm(t *testing.T) {
	f := newFixture(t)
	f.signIn()
	f.repo.insertErr = errors.New("connection reset")

	err := f.session.Submit(context.Background(), SubmitRequest{Rating: 5, Text: longText})
	assert.ErrorIs(t, err, ErrStore)
	snap := f.session.Snapshot()
	assert.Equal(t, StepForm, snap.Step)
	assert.NotEmpty(t, snap.Error)
	assert.Empty(t, f.rec.openedURLs())

	f.repo.insertErr = nil
	require.NoError(t, f.session.Submit(context.Background(), SubmitRequest{Rating: 5, Text: longText}))
	assert.Equal(t, StepReviewing, f.session.Snapshot().Step)
	assert.Equal(t, 2, f.repo.inserts)
}

func TestCompletesAfterExactlyNAdvances(t *testing.T) {
	patterns := [][]string{
		{"complete", "complete", "complete"},
		{"skip", "skip", "skip"},
		{"complete", "skip", "complete"},
		{"skip", "complete", "skip"},
	}
	for _, pattern := range patterns {
		t.Run(strings.Join(pattern, "-"), func(t *testing.T) {
			f := newFixture(t)
			f.reachReviewing(t)
			ctx := context.Background()

			n := f.reg.Len()
			require.Len(t, pattern, n)
			want := []string{}
			for i, action := range pattern {
				require.Equal(t, StepReviewing, f.session.Snapshot().Step, "advance %d", i)
				loc, _ := f.reg.At(i)
				if action == "complete" {
					require.NoError(t, f.session.MarkComplete(ctx, loc.ID))
					want = append(want, loc.ID)
				} else {
					require.NoError(t, f.session.Skip(loc.ID))
				}
				f.clock.Advance(1500 * time.Millisecond)
			}

			snap := f.session.Snapshot()
			assert.Equal(t, StepComplete, snap.Step)
			assert.Equal(t, want, snap.Draft.CompletedLocations)
			assert.Len(t, f.rec.openedURLs(), n)

			stored, err := f.repo.GetByID(ctx, snap.Draft.ID)
			require.NoError(t, err)
			assert.Equal(t, want, stored.CompletedLocations)

			for i, loc := range snap.Locations {
				if pattern[i] == "complete" {
					assert.Equal(t, OutcomeCompleted, loc.Outcome)
				} else {
					assert.Equal(t, OutcomeSkipped, loc.Outcome)
				}
			}
		})
	}
}

func TestNextLocationOpensAfterDelay(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)

	require.NoError(t, f.session.MarkComplete(context.Background(), "melbourne"))
	assert.Len(t, f.rec.openedURLs(), 1)
	assert.True(t, f.session.Snapshot().OpeningNext)

	f.clock.Advance(1499 * time.Millisecond)
	assert.Len(t, f.rec.openedURLs(), 1)
	f.clock.Advance(time.Millisecond)
	assert.Len(t, f.rec.openedURLs(), 2)
	assert.Equal(t, f.reg.List()[1].ReviewURL, f.rec.openedURLs()[1])
	assert.False(t, f.session.Snapshot().OpeningNext)
}

func TestRepeatedMarkCompleteNeverDuplicates(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)
	ctx := context.Background()

	require.NoError(t, f.session.MarkComplete(ctx, "melbourne"))
	assert.ErrorIs(t, f.session.MarkComplete(ctx, "melbourne"), ErrStaleLocation)
	assert.ErrorIs(t, f.session.MarkComplete(ctx, "melbourne"), ErrStaleLocation)
	assert.ErrorIs(t, f.session.Skip("melbourne"), ErrStaleLocation)

	snap := f.session.Snapshot()
	assert.Equal(t, []string{"melbourne"}, snap.Draft.CompletedLocations)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 1, f.repo.updates)
	assert.LessOrEqual(t, len(snap.Draft.CompletedLocations), f.reg.Len())
}

func TestUpdateFailureDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)
	ctx := context.Background()
	f.repo.updateErr = errors.New("timeout")

	err := f.session.MarkComplete(ctx, "melbourne")
	assert.ErrorIs(t, err, ErrStore)
	snap := f.session.Snapshot()
	assert.Equal(t, StepReviewing, snap.Step)
	assert.Equal(t, 0, snap.Index)
	assert.Empty(t, snap.Draft.CompletedLocations)
	assert.NotEmpty(t, snap.Error)

	f.repo.updateErr = nil
	require.NoError(t, f.session.MarkComplete(ctx, "melbourne"))
	snap = f.session.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, []string{"melbourne"}, snap.Draft.CompletedLocations)
	assert.Empty(t, snap.Error)
}

func TestMarkCompleteUpdatesCapturedRowOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.repo.Insert(ctx, &reviews.NewReviewIntent{CustomerName: "Jane Doe", CustomerEmail: "jane@example.com", Rating: 5})
	require.NoError(t, err)

	f.reachReviewing(t)
	require.NoError(t, f.session.MarkComplete(ctx, "melbourne"))

	// A newer row for the same email must not steal the update.
	_, err = f.repo.Insert(ctx, &reviews.NewReviewIntent{CustomerName: "Jane Doe", CustomerEmail: "jane@example.com", Rating: 5})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.session.MarkComplete(ctx, "brunswick"))

	mine, err := f.repo.GetByID(ctx, f.session.Snapshot().Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"melbourne", "brunswick"}, mine.CompletedLocations)

	untouched, err := f.repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, untouched.CompletedLocations)
}

func TestOpenAgain(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)

	require.NoError(t, f.session.OpenAgain())
	urls := f.rec.openedURLs()
	require.Len(t, urls, 2)
	assert.Equal(t, urls[0], urls[1])

	f2 := newFixture(t)
	assert.ErrorIs(t, f2.session.OpenAgain(), ErrWrongStep)
}

func TestCompleteCountdownNavigates(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)
	for _, loc := range f.reg.List() {
		require.NoError(t, f.session.Skip(loc.ID))
	}

	snap := f.session.Snapshot()
	require.Equal(t, StepComplete, snap.Step)
	assert.Equal(t, 10, snap.Countdown)
	assert.Equal(t, redirect, snap.RedirectURL)

	f.clock.Advance(3 * time.Second)
	assert.Equal(t, 7, f.session.Snapshot().Countdown)
	assert.Equal(t, 7, f.rec.last().Countdown)
	assert.Empty(t, f.rec.navigations())

	f.clock.Advance(7 * time.Second)
	assert.Equal(t, []string{redirect}, f.rec.navigations())

	f.clock.Advance(time.Minute)
	assert.Len(t, f.rec.navigations(), 1)
}

func TestCloseCancelsCountdown(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)
	for _, loc := range f.reg.List() {
		require.NoError(t, f.session.Skip(loc.ID))
	}
	f.clock.Advance(4 * time.Second)

	f.session.Close()
	f.clock.Advance(time.Minute)
	assert.Empty(t, f.rec.navigations())
	assert.Zero(t, f.clock.Pending())
}

func TestCloseCancelsPendingOpen(t *testing.T) {
	f := newFixture(t)
	f.reachReviewing(t)
	require.NoError(t, f.session.Skip("melbourne"))

	f.session.Close()
	f.clock.Advance(time.Minute)
	assert.Len(t, f.rec.openedURLs(), 1)
	assert.ErrorIs(t, f.session.Skip("brunswick"), ErrWrongStep)
}

func TestActionsOutsideReviewingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.ErrorIs(t, f.session.MarkComplete(ctx, "melbourne"), ErrWrongStep)
	assert.ErrorIs(t, f.session.Skip("melbourne"), ErrWrongStep)
	assert.ErrorIs(t, f.session.Submit(ctx, SubmitRequest{Rating: 5, Text: longText}), ErrWrongStep)
	assert.Zero(t, f.repo.inserts)
}

func TestUnknownStoredIDsAreClamped(t *testing.T) {
	f := newFixture(t)
	got := f.session.clampToRegistry([]string{"melbourne", "nowhere", "melbourne", "epping"})
	assert.Equal(t, []string{"melbourne", "epping"}, got)
}
