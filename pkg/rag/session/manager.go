package session

import (
	"context"
	"sync"

	"article-rag-be/internal/repository/contract"
	"article-rag-be/pkg/store"
)

// Manager handles session operations and serialises work on a single session
type Manager struct {
	sessionRepo contract.SessionRepository
	locks       sync.Map // session id -> *sync.Mutex
}

// NewManager creates a new session manager
func NewManager(sessionRepo contract.SessionRepository) *Manager {
	return &Manager{sessionRepo: sessionRepo}
}

// Lock acquires the per-session mutex and returns its release func.
func (m *Manager) Lock(sessionID string) func() {
	v, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// LoadOrCreate retrieves the session, allocating an empty one on first access
func (m *Manager) LoadOrCreate(ctx context.Context, sessionID string) (*store.Session, error) {
	return m.sessionRepo.GetOrCreate(ctx, sessionID)
}

// Load retrieves the session without creating it
func (m *Manager) Load(ctx context.Context, sessionID string) (*store.Session, bool, error) {
	return m.sessionRepo.Get(ctx, sessionID)
}

// Save persists session state
func (m *Manager) Save(ctx context.Context, session *store.Session) error {
	return m.sessionRepo.Save(ctx, session)
}

// Evict drops the session. The lock entry stays so callers already queued
// on it and callers arriving later still share one mutex. A caller queued
// behind Evict sees an empty session and may recreate it.
func (m *Manager) Evict(ctx context.Context, sessionID string) error {
	unlock := m.Lock(sessionID)
	defer unlock()
	return m.sessionRepo.Delete(ctx, sessionID)
}
