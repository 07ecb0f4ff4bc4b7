package memory

import (
	"context"
	"sync"
	"time"

	"article-rag-be/internal/repository/contract"
	"article-rag-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
	mu    sync.Mutex // guards get-or-create
}

// NewSessionRepository creates a session store. A ttl of 0 keeps sessions
// until they are explicitly deleted.
func NewSessionRepository(ttl time.Duration) contract.SessionRepository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
	}
	return &SessionRepository{
		cache: cache.New(expiration, cleanup),
	}
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, bool, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true, nil
	}
	return nil, false, nil
}

// GetOrCreate returns the stored instance so callers observe each other's mutations.
func (r *SessionRepository) GetOrCreate(ctx context.Context, sessionID string) (*store.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), nil
	}
	session := store.NewSession(sessionID, time.Now())
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return session, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}
