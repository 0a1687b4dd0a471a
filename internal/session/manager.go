package session

import (
	"sync"
	"time"

	"media-filter/internal/filter"
	"media-filter/internal/logging"
	"media-filter/internal/metrics"

	"github.com/google/uuid"
)

// Manager tracks live sessions and expires idle ones.
type Manager struct {
	registry *Registry
	profile  filter.Profile
	ttl      time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewManager creates a manager. A zero ttl disables expiry.
func NewManager(registry *Registry, profile filter.Profile, ttl time.Duration) *Manager {
	return &Manager{
		registry: registry,
		profile:  profile,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// Registry returns the handle registry shared by all sessions.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Create opens a session for asset with default parameters.
func (m *Manager) Create(asset Asset) *Session {
	s := newSession(uuid.Must(uuid.NewV7()).String(), m.registry, m.profile, asset)

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	logging.Debug("Session %s created for %s (%s)", s.ID, asset.Filename, asset.Kind)
	return s
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.touch()
	}
	return s, ok
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	metrics.ActiveSessions.Set(float64(n))
	logging.Debug("Session %s closed", id)
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the ttl and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		logging.Info("Expired %d idle sessions", len(expired))
	}
	return len(expired)
}

// StartJanitor sweeps expired sessions every interval until Stop.
func (m *Manager) StartJanitor(interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				m.Sweep(now)
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop halts the janitor and closes every session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	metrics.ActiveSessions.Set(0)
}
