package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/studyai/backend/internal/model/session"
)

// maxIDAttempts bounds regeneration when a fresh id is already registered.
const maxIDAttempts = 4

var (
	ErrUserRequired    = errors.New("user id is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrIDExhausted     = errors.New("could not allocate a unique session id")
)

// Manager tracks one session per open connection.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	onClose  []func(session.Session)
	newID    func() (uuid.UUID, error)
	now      func() time.Time
}

// NewManager bootstraps an empty in-memory registry.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]session.Session),
		newID:    uuid.NewRandom,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnClose registers fn to run after a session is removed. Hooks run outside
// the registry lock, once per removed session.
func (m *Manager) OnClose(fn func(session.Session)) {
	m.mu.Lock()
	m.onClose = append(m.onClose, fn)
	m.mu.Unlock()
}

// Open provisions a session with a newly generated id for userID.
func (m *Manager) Open(_ context.Context, userID string) (session.Session, error) {
	if userID == "" {
		return session.Session{}, ErrUserRequired
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := m.newID()
		if err != nil {
			return session.Session{}, fmt.Errorf("generate session id: %w", err)
		}

		s := session.Session{
			ID:        id.String(),
			UserID:    userID,
			CreatedAt: m.now(),
		}

		m.mu.Lock()
		if _, taken := m.sessions[s.ID]; taken {
			m.mu.Unlock()
			continue
		}
		m.sessions[s.ID] = s
		m.mu.Unlock()

		return s, nil
	}

	return session.Session{}, ErrIDExhausted
}

// Close removes the session. Unknown or already closed ids are ignored.
func (m *Manager) Close(_ context.Context, sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	hooks := slices.Clone(m.onClose)
	m.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range hooks {
		fn(s)
	}
}

// Get retrieves an open session by identifier.
func (m *Manager) Get(_ context.Context, sessionID string) (session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return session.Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
