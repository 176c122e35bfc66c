package funnel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/cleaningpros/review-funnel/internal/clock"
	"github.com/cleaningpros/review-funnel/internal/identity"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// SignInScriptURL is the third-party widget script the page loads on command.
const SignInScriptURL = "https://accounts.google.com/gsi/client"

// InboundMessage is what the page sends.
type InboundMessage struct {
	Type       string `json:"type"` // widget_loaded, widget_failed, credential, manual, submit, complete, skip, open_again, ping
	Credential string `json:"credential,omitempty"`
	Error      string `json:"error,omitempty"`
	LocationID string `json:"location_id,omitempty"`
	Rating     int    `json:"rating,omitempty"`
	Text       string `json:"text,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
}

// OutboundMessage is what the page is told to render or do.
type OutboundMessage struct {
	Type     string                  `json:"type"` // state, load_widget, init_widget, render_button, hide_button, prompt, open_url, navigate, error, pong
	State    *Snapshot               `json:"state,omitempty"`
	URL      string                  `json:"url,omitempty"`
	ClientID string                  `json:"client_id,omitempty"`
	Target   string                  `json:"target,omitempty"`
	Options  *identity.ButtonOptions `json:"options,omitempty"`
	Text     string                  `json:"text,omitempty"`
}

// IdentityConfig configures the sign-in bridge created per connection.
type IdentityConfig struct {
	ClientID   string
	Timeout    time.Duration
	AutoPrompt bool
	Verifier   identity.Verifier
}

// Handler serves the funnel WebSocket.
type Handler struct {
	manager  *Manager
	identity IdentityConfig
	clock    clock.Clock
	logger   *logging.Logger
}

// NewHandler creates the funnel WebSocket handler.
func NewHandler(manager *Manager, ident IdentityConfig, clk clock.Clock, logger *logging.Logger) *Handler {
	if manager == nil {
		panic("funnel: manager required")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, identity: ident, clock: clk, logger: logger}
}

// HandleWebSocket upgrades the request and runs one funnel session for the
// lifetime of the connection.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn) {
	p := newPeer(conn, h.logger)
	go p.writeLoop()

	sess := h.manager.Open(p, p, p)
	logger := h.logger
	bridge := identity.NewBridge(identity.Config{
		ClientID:   h.identity.ClientID,
		Timeout:    h.identity.Timeout,
		AutoPrompt: h.identity.AutoPrompt,
		Verifier:   h.identity.Verifier,
		Clock:      h.clock,
		Logger:     logger,
	}, p, func(ev identity.Event) {
		// A button rendered before a timeout or failure would only produce
		// credentials the bridge ignores.
		if ev.Kind != identity.EventSucceeded {
			p.send(OutboundMessage{Type: "hide_button", Target: DefaultButtonTarget})
		}
		sess.IdentityResolved(ev)
	})

	defer func() {
		bridge.Abandon()
		_ = h.manager.Close(sess.ID())
		p.close()
		logger.Debug("funnel: connection closed", "session_id", sess.ID())
	}()

	logger.Info("funnel: connection opened", "session_id", sess.ID())
	sess.Publish()
	_ = bridge.Start(ctx)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}
		h.dispatch(ctx, sess, bridge, p, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess *Session, bridge *identity.Bridge, p *peer, msg InboundMessage) {
	var err error
	switch msg.Type {
	case "ping":
		p.send(OutboundMessage{Type: "pong"})
		return
	case "widget_loaded":
		bridge.ScriptLoaded()
		if bridge.State() == identity.StateReady {
			sess.IdentityReady()
		}
	case "widget_failed":
		bridge.ScriptFailed(errors.New(msg.Error))
	case "credential":
		bridge.Credential(ctx, msg.Credential)
	case "manual":
		sess.Manual()
	case "submit":
		err = sess.Submit(ctx, SubmitRequest{
			Rating: msg.Rating,
			Text:   msg.Text,
			Name:   msg.Name,
			Email:  msg.Email,
		})
	case "complete":
		err = sess.MarkComplete(ctx, msg.LocationID)
	case "skip":
		err = sess.Skip(msg.LocationID)
	case "open_again":
		err = sess.OpenAgain()
	default:
		h.logger.Debug("funnel: unknown message type", "type", msg.Type)
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrStaleLocation), errors.Is(err, ErrBusy), errors.Is(err, ErrWrongStep):
		h.logger.Debug("funnel: ignored action", "session_id", sess.ID(), "type", msg.Type, "reason", err)
	default:
		// Validation and store errors are already on the snapshot.
		h.logger.Debug("funnel: action failed", "session_id", sess.ID(), "type", msg.Type, "error", err)
	}
}

// peer is the browser end of one connection. It is the session's view,
// opener and navigator and the bridge's widget. Every call only enqueues;
// writeLoop owns the socket writes.
type peer struct {
	conn   *websocket.Conn
	logger *logging.Logger
	out    chan OutboundMessage
	done   chan struct{}
	once   sync.Once
}

func newPeer(conn *websocket.Conn, logger *logging.Logger) *peer {
	return &peer{
		conn:   conn,
		logger: logger,
		out:    make(chan OutboundMessage, 32),
		done:   make(chan struct{}),
	}
}

func (p *peer) send(msg OutboundMessage) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.out <- msg:
		return true
	case <-p.done:
		return false
	}
}

func (p *peer) writeLoop() {
	for {
		select {
		case msg := <-p.out:
			if err := websocket.JSON.Send(p.conn, msg); err != nil {
				p.logger.Debug("funnel: write failed", "type", msg.Type, "error", err)
				p.close()
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

var errPeerClosed = errors.New("funnel: connection closed")

func (p *peer) sendErr(msg OutboundMessage) error {
	if !p.send(msg) {
		return errPeerClosed
	}
	return nil
}

func (p *peer) Render(s Snapshot) {
	p.send(OutboundMessage{Type: "state", State: &s})
}

func (p *peer) Open(url string) error {
	return p.sendErr(OutboundMessage{Type: "open_url", URL: url})
}

func (p *peer) Navigate(url string) error {
	return p.sendErr(OutboundMessage{Type: "navigate", URL: url})
}

func (p *peer) Load(context.Context) error {
	return p.sendErr(OutboundMessage{Type: "load_widget", URL: SignInScriptURL})
}

func (p *peer) Initialize(clientID string) error {
	return p.sendErr(OutboundMessage{Type: "init_widget", ClientID: clientID})
}

func (p *peer) Prompt() error {
	return p.sendErr(OutboundMessage{Type: "prompt"})
}

func (p *peer) RenderButton(target string, opts identity.ButtonOptions) error {
	return p.sendErr(OutboundMessage{Type: "render_button", Target: target, Options: &opts})
}
