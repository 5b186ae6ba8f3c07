package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ControlFactory builds the platform control for a new session's first
// video.
type ControlFactory func(videoID string) (Control, error)

// Manager owns all live playback sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  ControlFactory
	interval time.Duration
}

func NewManager(factory ControlFactory) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// SetSampleInterval overrides the progress sampling interval for sessions
// created afterwards. Zero keeps the one second default.
func (m *Manager) SetSampleInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
}

// Create builds a session around a fresh platform player. A factory
// failure means no session: the widget stays unconstructed.
func (m *Manager) Create(cfg Config) (*Session, error) {
	control, err := m.factory(cfg.VideoID)
	if err != nil {
		return nil, fmt.Errorf("create player control: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = m.interval
	}
	session := newSession(uuid.NewString(), control, cfg)
	m.sessions[session.ID()] = session
	return session, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Remove tears the session down and forgets it.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		session.Teardown()
	}
	return ok
}

// SetCaptionLocale propagates a locale change to every live session.
// Wired to the language change broadcaster.
func (m *Manager) SetCaptionLocale(locale string) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.SetCaptionLanguage(locale)
	}
}

// Shutdown tears down every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Teardown()
	}
}
