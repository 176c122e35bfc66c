package feedback

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaningpros/review-funnel/internal/bookings"
	"github.com/cleaningpros/review-funnel/internal/observability/metrics"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

type recordingAlerter struct {
	entries []Entry
	err     error
}

func (a *recordingAlerter) RecleanAlert(_ context.Context, entry Entry) error {
	a.entries = append(a.entries, entry)
	return a.err
}

type failingRepo struct{ err error }

func (r failingRepo) Insert(context.Context, *NewEntry) (*Entry, error) { return nil, r.err }

type stubContacts struct {
	contact *bookings.Contact
	err     error
}

func (s stubContacts) ContactForBooking(context.Context, string) (*bookings.Contact, error) {
	return s.contact, s.err
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(&bytes.Buffer{}, "error")
}

func TestService_SubmitStoresEntry(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, nil, nil, nil, quietLogger())

	entry, err := svc.Submit(context.Background(), &NewEntry{BookingNumber: "BK-1", FeedbackOption: OptionGreat, Rating: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	require.Len(t, repo.Entries(), 1)
	assert.Equal(t, "BK-1", repo.Entries()[0].BookingNumber)
}

func TestService_RecleanRaisesAlert(t *testing.T) {
	alerter := &recordingAlerter{}
	reg := prometheus.NewRegistry()
	m := metrics.NewFeedbackMetrics(reg)
	svc := NewService(NewInMemoryRepository(), nil, alerter, m, quietLogger())

	_, err := svc.Submit(context.Background(), &NewEntry{BookingNumber: "BK-9", FeedbackOption: OptionReclean, Rating: 3, Feedback: "Bathroom missed"})
	require.NoError(t, err)
	require.Len(t, alerter.entries, 1)
	assert.Equal(t, "BK-9", alerter.entries[0].BookingNumber)

	_, err = svc.Submit(context.Background(), &NewEntry{FeedbackOption: OptionGreat, Rating: 5})
	require.NoError(t, err)
	assert.Len(t, alerter.entries, 1)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "reviewfunnel_feedback_reclean_alerts_total"))
}

func TestService_AlertFailureDoesNotFailSubmit(t *testing.T) {
	alerter := &recordingAlerter{err: errors.New("smtp down")}
	svc := NewService(NewInMemoryRepository(), nil, alerter, nil, quietLogger())

	entry, err := svc.Submit(context.Background(), &NewEntry{FeedbackOption: OptionReclean, Rating: 3})
	require.NoError(t, err)
	assert.NotNil(t, entry)
	assert.Len(t, alerter.entries, 1)
}

func TestService_StoreFailureIsWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	alerter := &recordingAlerter{}
	svc := NewService(failingRepo{err: cause}, nil, alerter, nil, quietLogger())

	_, err := svc.Submit(context.Background(), &NewEntry{FeedbackOption: OptionReclean, Rating: 3})
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, alerter.entries)
}

func TestService_ValidationRejectedBeforeStore(t *testing.T) {
	svc := NewService(failingRepo{err: errors.New("must not be called")}, nil, nil, nil, quietLogger())

	_, err := svc.Submit(context.Background(), &NewEntry{FeedbackOption: OptionGreat, Rating: 7})
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestService_Prefill(t *testing.T) {
	repo := bookings.NewInMemoryRepository()
	repo.Add(bookings.Booking{ID: "b-1", BookingNumber: "BK-1"}, &bookings.Customer{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"})
	svc := NewService(NewInMemoryRepository(), bookings.NewService(repo, quietLogger()), nil, nil, quietLogger())

	contact := svc.Prefill(context.Background(), "BK-1")
	require.NotNil(t, contact)
	assert.Equal(t, "Jane Doe", contact.Name)
	assert.Equal(t, "jane@example.com", contact.Email)
}

func TestService_PrefillFailuresAreSilent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewFeedbackMetrics(reg)

	missing := NewService(NewInMemoryRepository(), stubContacts{err: bookings.ErrBookingNotFound}, nil, m, quietLogger())
	assert.Nil(t, missing.Prefill(context.Background(), "BK-404"))

	broken := NewService(NewInMemoryRepository(), stubContacts{err: errors.New("timeout")}, nil, m, quietLogger())
	assert.Nil(t, broken.Prefill(context.Background(), "BK-1"))

	none := NewService(NewInMemoryRepository(), nil, nil, m, quietLogger())
	assert.Nil(t, none.Prefill(context.Background(), "BK-1"))
	assert.Nil(t, missing.Prefill(context.Background(), ""))

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "reviewfunnel_feedback_prefill_lookups_total"))
}
