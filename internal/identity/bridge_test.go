package identity

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaningpros/review-funnel/internal/clock"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

type fakeWidget struct {
	mu          sync.Mutex
	loads       int
	initialized []string
	rendered    []string
	prompts     int
	loadErr     error
	initErr     error
}

func (w *fakeWidget) Load(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loads++
	return w.loadErr
}

func (w *fakeWidget) Initialize(clientID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.initialized = append(w.initialized, clientID)
	return w.initErr
}

func (w *fakeWidget) Prompt() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prompts++
	return nil
}

func (w *fakeWidget) RenderButton(target string, _ ButtonOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rendered = append(w.rendered, target)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newTestBridge(clientID string, w Widget) (*Bridge, *recorder, *clock.Fake) {
	fake := clock.NewFake(time.Unix(0, 0))
	rec := &recorder{}
	b := NewBridge(Config{
		ClientID: clientID,
		Timeout:  5 * time.Second,
		Clock:    fake,
		Logger:   logging.NewWithWriter(&bytes.Buffer{}, "debug"),
	}, w, rec.listen)
	return b, rec, fake
}

const sample = `{"name":"Jane Doe","email":"jane@example.com","picture":"https://x/y.png"}`

func TestStartWithoutClientIDFailsWithoutInitialize(t *testing.T) {
	w := &fakeWidget{}
	b, rec, _ := newTestBridge("", w)

	err := b.Start(context.Background())
	require.ErrorIs(t, err, ErrMissingClientID)
	assert.Equal(t, StateFailed, b.State())
	assert.Zero(t, w.loads)
	assert.Empty(t, w.initialized)
	require.Len(t, rec.all(), 1)
	assert.Equal(t, EventFailed, rec.all()[0].Kind)
}

func TestHappyPath(t *testing.T) {
	w := &fakeWidget{}
	b, rec, fake := newTestBridge("client-1", w)

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, StateLoading, b.State())
	assert.Equal(t, 1, fake.Pending())

	b.ScriptLoaded()
	b.ScriptLoaded()
	assert.Equal(t, StateReady, b.State())
	assert.Equal(t, []string{"client-1"}, w.initialized)
	assert.Equal(t, []string{"google-signin-button"}, w.rendered)

	b.Credential(context.Background(), token(sample))
	assert.Equal(t, StateSucceeded, b.State())
	assert.Zero(t, fake.Pending(), "credential must cancel the fallback timer")

	fake.Advance(time.Minute)
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventSucceeded, events[0].Kind)
	assert.Equal(t, "jane@example.com", events[0].Profile.Email)
}

func TestTimeoutWithoutCallback(t *testing.T) {
	b, rec, fake := newTestBridge("client-1", &fakeWidget{})
	require.NoError(t, b.Start(context.Background()))

	fake.Advance(4 * time.Second)
	assert.Equal(t, StateLoading, b.State())
	fake.Advance(time.Second)
	assert.Equal(t, StateTimedOut, b.State())

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventTimedOut, events[0].Kind)
	assert.ErrorIs(t, events[0].Err, ErrTimedOut)
}

func TestCredentialAfterTimeoutIsIgnored(t *testing.T) {
	w := &fakeWidget{}
	b, rec, fake := newTestBridge("client-1", w)
	require.NoError(t, b.Start(context.Background()))
	fake.Advance(5 * time.Second)

	b.ScriptLoaded()
	b.Credential(context.Background(), token(sample))

	assert.Equal(t, StateTimedOut, b.State())
	assert.Empty(t, w.initialized)
	require.Len(t, rec.all(), 1)
	assert.Equal(t, EventTimedOut, rec.all()[0].Kind)
}

func TestTimerFiringAfterCredentialDoesNothing(t *testing.T) {
	b, rec, fake := newTestBridge("client-1", &fakeWidget{})
	require.NoError(t, b.Start(context.Background()))
	b.ScriptLoaded()

	fake.Advance(4999 * time.Millisecond)
	b.Credential(context.Background(), token(sample))
	fake.Advance(time.Hour)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventSucceeded, events[0].Kind)
}

func TestMalformedCredentialFails(t *testing.T) {
	b, rec, fake := newTestBridge("client-1", &fakeWidget{})
	require.NoError(t, b.Start(context.Background()))
	b.ScriptLoaded()

	assert.NotPanics(t, func() { b.Credential(context.Background(), "garbage") })
	assert.Equal(t, StateFailed, b.State())
	fake.Advance(time.Minute)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventFailed, events[0].Kind)
	assert.ErrorIs(t, events[0].Err, ErrMalformedCredential)
}

func TestScriptFailureIsTerminal(t *testing.T) {
	w := &fakeWidget{}
	b, rec, fake := newTestBridge("client-1", w)
	require.NoError(t, b.Start(context.Background()))

	b.ScriptFailed(errors.New("blocked"))
	assert.Equal(t, StateFailed, b.State())
	assert.Zero(t, fake.Pending())

	b.ScriptLoaded()
	b.Credential(context.Background(), token(sample))
	assert.Empty(t, w.initialized)
	require.Len(t, rec.all(), 1)
	assert.ErrorIs(t, rec.all()[0].Err, ErrScriptLoad)
}

func TestLoadErrorFails(t *testing.T) {
	w := &fakeWidget{loadErr: errors.New("socket closed")}
	b, rec, _ := newTestBridge("client-1", w)

	err := b.Start(context.Background())
	require.ErrorIs(t, err, ErrScriptLoad)
	assert.Equal(t, StateFailed, b.State())
	require.Len(t, rec.all(), 1)
}

func TestInitializeErrorFails(t *testing.T) {
	w := &fakeWidget{initErr: errors.New("bad client")}
	b, _, _ := newTestBridge("client-1", w)
	require.NoError(t, b.Start(context.Background()))

	b.ScriptLoaded()
	assert.Equal(t, StateFailed, b.State())
	assert.Empty(t, w.rendered)
}

func TestStartTwice(t *testing.T) {
	b, _, _ := newTestBridge("client-1", &fakeWidget{})
	require.NoError(t, b.Start(context.Background()))
	assert.ErrorIs(t, b.Start(context.Background()), ErrAlreadyStarted)
}

func TestAbandonStopsTimerSilently(t *testing.T) {
	b, rec, fake := newTestBridge("client-1", &fakeWidget{})
	require.NoError(t, b.Start(context.Background()))

	b.Abandon()
	fake.Advance(time.Minute)
	assert.Empty(t, rec.all())
	assert.True(t, b.State().Terminal())
}

func TestTimeoutClamped(t *testing.T) {
	assert.Equal(t, DefaultTimeout, clampTimeout(0))
	assert.Equal(t, MinTimeout, clampTimeout(time.Second))
	assert.Equal(t, MaxTimeout, clampTimeout(time.Minute))
	assert.Equal(t, 7*time.Second, clampTimeout(7*time.Second))
}

func TestAutoPrompt(t *testing.T) {
	w := &fakeWidget{}
	b := NewBridge(Config{
		ClientID:   "client-1",
		AutoPrompt: true,
		Clock:      clock.NewFake(time.Unix(0, 0)),
		Logger:     logging.NewWithWriter(&bytes.Buffer{}, "info"),
	}, w, nil)
	require.NoError(t, b.Start(context.Background()))
	b.ScriptLoaded()
	assert.Equal(t, 1, w.prompts)
}

type stubVerifier struct {
	profile *Profile
	err     error
}

func (s stubVerifier) Verify(context.Context, string) (*Profile, error) {
	return s.profile, s.err
}

func TestVerifierIsUsedWhenConfigured(t *testing.T) {
	rec := &recorder{}
	b := NewBridge(Config{
		ClientID: "client-1",
		Verifier: stubVerifier{err: ErrInvalidCredential},
		Clock:    clock.NewFake(time.Unix(0, 0)),
		Logger:   logging.NewWithWriter(&bytes.Buffer{}, "info"),
	}, &fakeWidget{}, rec.listen)
	require.NoError(t, b.Start(context.Background()))
	b.ScriptLoaded()

	b.Credential(context.Background(), token(sample))
	require.Len(t, rec.all(), 1)
	assert.ErrorIs(t, rec.all()[0].Err, ErrInvalidCredential)
}
