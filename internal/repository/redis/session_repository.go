package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"article-rag-be/internal/repository/contract"
	"article-rag-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "article-rag:session:"

// SessionRepository keeps sessions as JSON documents so several instances
// can share them. Unlike the memory store, every Get returns a fresh copy.
type SessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration) contract.SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, bool, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var session store.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &session, true, nil
}

func (r *SessionRepository) GetOrCreate(ctx context.Context, sessionID string) (*store.Session, error) {
	session, found, err := r.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if found {
		return session, nil
	}

	session = store.NewSession(sessionID, time.Now())
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	// SetNX so a concurrent creator on another instance wins cleanly.
	created, err := r.rdb.SetNX(ctx, sessionKey(sessionID), raw, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}
	if !created {
		session, _, err = r.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return store.NewSession(sessionID, time.Now()), nil
		}
	}
	return session, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sessionKey(session.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

// NewClient accepts either a redis:// URL or a bare host:port.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}
