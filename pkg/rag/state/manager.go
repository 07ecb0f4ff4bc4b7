package state

import (
	"time"

	"article-rag-be/internal/entity"
	"article-rag-be/internal/pkg/logger"
	"article-rag-be/pkg/llm"
	"article-rag-be/pkg/store"
)

// Manager handles session state transitions
type Manager struct {
	logger logger.ILogger
}

// NewManager creates a new state manager
func NewManager(logger logger.ILogger) *Manager {
	return &Manager{logger: logger}
}

// TransitionToFocused copies the article into the session's selected slot.
// History is kept across re-selection.
func (m *Manager) TransitionToFocused(session *store.Session, article entity.Article) {
	session.SelectedArticle = &article
	session.State = store.StateFocused
	session.UpdatedAt = time.Now()
	m.logger.Debug("STATE", "Transitioned to FOCUSED", map[string]interface{}{
		"session_id": session.ID,
		"article_id": article.Id,
	})
}

// AppendTurn records one question/answer exchange in order.
func (m *Manager) AppendTurn(session *store.Session, question, answer string) {
	session.History = append(session.History,
		llm.Message{Role: llm.RoleUser, Content: question},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	session.UpdatedAt = time.Now()
}
