// Package identity wraps the third-party sign-in widget. A Bridge drives
// the widget through an injected Widget, decodes the assertion it returns
// and races it against a fallback timer.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cleaningpros/review-funnel/internal/clock"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// State of a bridge. Succeeded, Failed and TimedOut are terminal.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateSucceeded
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

const (
	DefaultTimeout = 10 * time.Second
	MinTimeout     = 3 * time.Second
	MaxTimeout     = 10 * time.Second
)

// ButtonOptions mirror the widget's renderButton options.
type ButtonOptions struct {
	Theme string `json:"theme,omitempty"`
	Size  string `json:"size,omitempty"`
	Type  string `json:"type,omitempty"`
	Shape string `json:"shape,omitempty"`
	Text  string `json:"text,omitempty"`
	Width int    `json:"width,omitempty"`
}

// DefaultButtonOptions is the look used on the review page.
var DefaultButtonOptions = ButtonOptions{
	Theme: "outline",
	Size:  "large",
	Type:  "standard",
	Shape: "rectangular",
	Text:  "continue_with",
}

// Widget is the browser-side sign-in widget. Load starts the asynchronous
// script load; its outcome is reported back through ScriptLoaded or
// ScriptFailed.
type Widget interface {
	Load(ctx context.Context) error
	Initialize(clientID string) error
	Prompt() error
	RenderButton(target string, opts ButtonOptions) error
}

type Config struct {
	ClientID     string
	Timeout      time.Duration
	ButtonTarget string
	Button       ButtonOptions
	AutoPrompt   bool
	Verifier     Verifier
	Clock        clock.Clock
	Logger       *logging.Logger
}

// EventKind is the outcome reported to the listener.
type EventKind int

const (
	EventSucceeded EventKind = iota + 1
	EventFailed
	EventTimedOut
)

func (k EventKind) String() string {
	switch k {
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	Profile *Profile
	Err     error
}

// Listener receives exactly one Event per bridge.
type Listener func(Event)

// Bridge is single use: once terminal it never retries.
type Bridge struct {
	cfg      Config
	widget   Widget
	listener Listener
	clock    clock.Clock
	logger   *logging.Logger

	mu       sync.Mutex
	state    State
	timer    clock.Timer
	gen      int
	loaded   bool
	decoding bool
}

func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}

// NewBridge wires a bridge to its widget and listener.
func NewBridge(cfg Config, widget Widget, listener Listener) *Bridge {
	cfg.Timeout = clampTimeout(cfg.Timeout)
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.ButtonTarget == "" {
		cfg.ButtonTarget = "google-signin-button"
	}
	if cfg.Button == (ButtonOptions{}) {
		cfg.Button = DefaultButtonOptions
	}
	if listener == nil {
		listener = func(Event) {}
	}
	return &Bridge{
		cfg:      cfg,
		widget:   widget,
		listener: listener,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start begins loading the widget and arms the fallback timer.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	if b.cfg.ClientID == "" {
		b.state = StateFailed
		b.mu.Unlock()
		b.logger.Warn("sign-in disabled: client id not configured")
		b.listener(Event{Kind: EventFailed, Err: ErrMissingClientID})
		return ErrMissingClientID
	}
	b.state = StateLoading
	b.armLocked()
	b.mu.Unlock()

	if err := b.widget.Load(ctx); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrScriptLoad, err)
		b.fail(wrapped)
		return wrapped
	}
	return nil
}

// ScriptLoaded initializes the widget and renders the button.
func (b *Bridge) ScriptLoaded() {
	b.mu.Lock()
	if b.state != StateLoading || b.loaded {
		b.mu.Unlock()
		return
	}
	b.loaded = true
	b.mu.Unlock()

	if err := b.widget.Initialize(b.cfg.ClientID); err != nil {
		b.fail(fmt.Errorf("identity: initialize widget: %w", err))
		return
	}

	b.mu.Lock()
	if b.state != StateLoading {
		b.mu.Unlock()
		return
	}
	b.state = StateReady
	b.mu.Unlock()

	if err := b.widget.RenderButton(b.cfg.ButtonTarget, b.cfg.Button); err != nil {
		b.fail(fmt.Errorf("identity: render button: %w", err))
		return
	}
	if b.cfg.AutoPrompt {
		if err := b.widget.Prompt(); err != nil {
			b.logger.Debug("sign-in prompt unavailable", "error", err)
		}
	}
}

// ScriptFailed reports that the widget script could not load.
func (b *Bridge) ScriptFailed(err error) {
	if err == nil {
		err = ErrScriptLoad
	} else if !errors.Is(err, ErrScriptLoad) {
		err = fmt.Errorf("%w: %v", ErrScriptLoad, err)
	}
	b.fail(err)
}

// Credential handles the assertion returned by the widget. It cancels the
// fallback timer before decoding. Calls after a terminal state are ignored.
func (b *Bridge) Credential(ctx context.Context, token string) {
	b.mu.Lock()
	if b.state == StateIdle || b.state.Terminal() || b.decoding {
		state := b.state
		b.mu.Unlock()
		b.logger.Debug("ignoring late credential", "state", state.String())
		return
	}
	b.decoding = true
	b.stopLocked()
	b.mu.Unlock()

	var (
		profile *Profile
		err     error
	)
	if b.cfg.Verifier != nil {
		profile, err = b.cfg.Verifier.Verify(ctx, token)
	} else {
		profile, err = DecodeCredential(token)
	}

	b.mu.Lock()
	b.decoding = false
	if b.state.Terminal() {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.state = StateFailed
		b.mu.Unlock()
		b.logger.Warn("sign-in credential rejected", "error", err)
		b.listener(Event{Kind: EventFailed, Err: err})
		return
	}
	b.state = StateSucceeded
	b.mu.Unlock()
	b.listener(Event{Kind: EventSucceeded, Profile: profile})
}

// Abandon stops the timer without emitting an event. Used when the owning
// page goes away.
func (b *Bridge) Abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	if !b.state.Terminal() {
		b.state = StateFailed
	}
}

func (b *Bridge) fail(err error) {
	b.mu.Lock()
	if b.state.Terminal() {
		b.mu.Unlock()
		return
	}
	b.state = StateFailed
	b.stopLocked()
	b.mu.Unlock()
	b.logger.Warn("sign-in unavailable", "error", err)
	b.listener(Event{Kind: EventFailed, Err: err})
}

func (b *Bridge) armLocked() {
	b.gen++
	gen := b.gen
	b.timer = b.clock.AfterFunc(b.cfg.Timeout, func() { b.expire(gen) })
}

func (b *Bridge) stopLocked() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Bridge) expire(gen int) {
	b.mu.Lock()
	if gen != b.gen || b.state.Terminal() || b.decoding {
		b.mu.Unlock()
		return
	}
	b.state = StateTimedOut
	b.timer = nil
	b.mu.Unlock()
	b.logger.Info("sign-in timed out", "timeout", b.cfg.Timeout.String())
	b.listener(Event{Kind: EventTimedOut, Err: ErrTimedOut})
}
