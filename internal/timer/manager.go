package timer

import (
	"sync"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/database"
	"go.uber.org/zap"
)

// Manager hands out one session per user within this process. The
// "at most one open entry per user" invariant is session-local;
// cross-process exclusion belongs to the persistence layer.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	entries  database.TimeEntryRepositoryInterface
	logger   *zap.Logger
	opts     []Option
}

// NewManager creates a session manager backed by the entry repository.
func NewManager(entries database.TimeEntryRepositoryInterface, logger *zap.Logger, opts ...Option) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		entries:  entries,
		logger:   logger,
		opts:     opts,
	}
}

// Session returns the user's session, creating an idle one on first
// use.
func (m *Manager) Session(userID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := NewSession(userID, m.entries, m.logger, m.opts...)
	m.sessions[userID] = s
	return s
}

// Close tears down every session, cancelling pending ticks.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		s.Close()
	}
	m.sessions = make(map[uuid.UUID]*Session)
}
