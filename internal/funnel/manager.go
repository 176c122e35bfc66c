package funnel

import (
	"sync"

	"github.com/google/uuid"
)

// Manager tracks the live sessions, one per connected tab.
type Manager struct {
	base Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager holds the collaborators shared by every session. Per-tab
// collaborators (view, opener, navigator) are supplied on Open.
func NewManager(base Config) *Manager {
	if base.Reviews == nil {
		panic("funnel: reviews repository required")
	}
	return &Manager{
		base:     base,
		sessions: make(map[string]*Session),
	}
}

// Open creates and registers a new session.
func (m *Manager) Open(view View, opener Opener, navigator Navigator) *Session {
	cfg := m.base
	cfg.View = view
	cfg.Opener = opener
	cfg.Navigator = navigator

	s := NewSession(uuid.New().String(), cfg)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.base.Metrics.SessionOpened()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close stops the session's timers and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.base.Metrics.SessionClosed()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll ends every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		m.base.Metrics.SessionClosed()
	}
}
