package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"article-rag-be/internal/repository/contract"
	"article-rag-be/pkg/store"

	"go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// SessionRepository persists sessions in a single bbolt file so a restarted
// instance keeps its conversations. The file is locked to one process.
type SessionRepository struct {
	db *bbolt.DB
}

func Open(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session file %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewSessionRepository(db *bbolt.DB) contract.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) (*store.Session, bool, error) {
	var session *store.Session
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(sessionID))
		if data == nil {
			return nil
		}
		session = &store.Session{}
		return json.Unmarshal(data, session)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return session, session != nil, nil
}

func (r *SessionRepository) GetOrCreate(_ context.Context, sessionID string) (*store.Session, error) {
	var session *store.Session
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if data := b.Get([]byte(sessionID)); data != nil {
			session = &store.Session{}
			return json.Unmarshal(data, session)
		}

		session = store.NewSession(sessionID, time.Now())
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return b.Put([]byte(sessionID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}
	return session, nil
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(session.ID), data)
	})
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(sessionID))
	})
}
