package contract

import (
	"context"

	"article-rag-be/pkg/store"
)

type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*store.Session, bool, error)
	GetOrCreate(ctx context.Context, sessionID string) (*store.Session, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, sessionID string) error
}
