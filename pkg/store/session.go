package store

import (
	"time"

	"article-rag-be/internal/entity"
	"article-rag-be/pkg/llm"
)

// Session represents the conversation state kept for one client session id
type Session struct {
	ID    string `json:"id"`
	State string `json:"state"` // "BROWSING" | "FOCUSED"

	// THE WORKBENCH (the article being discussed)
	SelectedArticle *entity.Article `json:"selected_article"`

	// Ordered user/assistant turns
	History []llm.Message `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	StateBrowsing = "BROWSING"
	StateFocused  = "FOCUSED"
)

// NewSession returns an empty browsing session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateBrowsing,
		History:   []llm.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
