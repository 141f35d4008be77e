package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the registry of live sessions.
type Manager struct {
	log      *slog.Logger
	geocoder Geocoder
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(log *slog.Logger, geocoder Geocoder) *Manager {
	return &Manager{
		log:      log,
		geocoder: geocoder,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]

	return s, ok
}

// GetOrCreate returns the session with the given ID or starts a new one with a
// fresh ID when it is unknown.
func (m *Manager) GetOrCreate(id string) *Session {
	if s, ok := m.Get(id); ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}

	s := newSession(uuid.NewString(), m.geocoder, m.log, m.now)
	m.sessions[s.id] = s
	m.log.Debug("Session created", "session", s.id)

	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// Sweep removes sessions idle since before cutoff. Sessions with a run in
// flight are kept.
func (m *Manager) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.busy() || !s.idleSince().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		removed++
		m.log.DebugContext(ctx, "Session expired", "session", id)
	}

	return removed
}
