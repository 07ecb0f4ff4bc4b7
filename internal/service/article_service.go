package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"article-rag-be/internal/dto"
	"article-rag-be/internal/entity"
	"article-rag-be/internal/pkg/logger"
	"article-rag-be/internal/repository/contract"
	"article-rag-be/pkg/embedding"
	"article-rag-be/pkg/events"
	"article-rag-be/pkg/llm"
	"article-rag-be/pkg/rag/response"
	"article-rag-be/pkg/rag/session"
	"article-rag-be/pkg/rag/state"
)

var (
	ErrIndexNotReady     = errors.New("index not initialized, ingest articles first")
	ErrArticleNotFound   = errors.New("article not found")
	ErrNoArticleSelected = errors.New("no article selected for this session")
)

// ArticleServiceConfig holds the search and selection bounds.
type ArticleServiceConfig struct {
	SearchScanLimit     int // items scrolled for a category listing
	CategoryResultLimit int
	SemanticTopK        int
	SelectScanLimit     int // articles beyond this window cannot be selected
	SnippetLength       int // in runes
	EmbeddingDimension  int // used when a batch yields no vectors
}

func DefaultArticleServiceConfig() ArticleServiceConfig {
	return ArticleServiceConfig{
		SearchScanLimit:     100,
		CategoryResultLimit: 20,
		SemanticTopK:        5,
		SelectScanLimit:     100,
		SnippetLength:       200,
		EmbeddingDimension:  1536,
	}
}

type IArticleService interface {
	Ingest(ctx context.Context, articles []*entity.Article) (int, error)
	IngestAsync(ctx context.Context, articles []*entity.Article) error
	Search(ctx context.Context, request *dto.SearchRequest) (*dto.SearchResponse, error)
	Select(ctx context.Context, request *dto.SelectRequest) (bool, error)
	Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error)
	GetOrCreateHistory(ctx context.Context, sessionID string) ([]llm.Message, error)
	GetHistory(ctx context.Context, sessionID string) ([]*dto.MessageDTO, error)
	EvictSession(ctx context.Context, sessionID string) error
	IndexReady() bool
}

type articleService struct {
	indexRepo         contract.ArticleIndexRepository
	embeddingProvider embedding.EmbeddingProvider
	publisherService  IPublisherService
	eventPublisher    events.Publisher
	logger            logger.ILogger
	cfg               ArticleServiceConfig

	sessionManager    *session.Manager
	stateManager      *state.Manager
	responseGenerator *response.Generator

	ready    atomic.Bool
	ingestMu sync.Mutex
}

func NewArticleService(
	indexRepo contract.ArticleIndexRepository,
	sessionRepo contract.SessionRepository,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	eventPublisher events.Publisher,
	logger logger.ILogger,
	cfg ArticleServiceConfig,
) IArticleService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}
	return &articleService{
		indexRepo:         indexRepo,
		embeddingProvider: embeddingProvider,
		publisherService:  publisherService,
		eventPublisher:    eventPublisher,
		logger:            logger,
		cfg:               cfg,

		sessionManager:    session.NewManager(sessionRepo),
		stateManager:      state.NewManager(logger),
		responseGenerator: response.NewGenerator(llmProvider, logger),
	}
}

func (s *articleService) IndexReady() bool {
	return s.ready.Load()
}

// Ingest embeds every article, then replaces the whole collection with them.
func (s *articleService) Ingest(ctx context.Context, articles []*entity.Article) (int, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	vectors := make([][]float32, len(articles))
	for i, a := range articles {
		res, err := s.embeddingProvider.Generate(ctx, a.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			return 0, fmt.Errorf("failed to embed article %s: %w", a.Id, err)
		}
		vectors[i] = res.Embedding.Values
	}

	dimension := s.cfg.EmbeddingDimension
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}

	if err := s.indexRepo.Recreate(ctx, dimension); err != nil {
		return 0, fmt.Errorf("failed to recreate index: %w", err)
	}
	if err := s.indexRepo.InsertBulk(ctx, articles, vectors); err != nil {
		return 0, fmt.Errorf("failed to insert articles: %w", err)
	}
	s.ready.Store(true)

	s.logger.Info("ARTICLE", "Articles ingested", map[string]interface{}{
		"count":     len(articles),
		"dimension": dimension,
	})
	s.publishEvent(ctx, events.NewArticleIngestedEvent(len(articles), dimension))

	return len(articles), nil
}

// IngestAsync queues the batch on the ingest topic.
func (s *articleService) IngestAsync(ctx context.Context, articles []*entity.Article) error {
	if s.publisherService == nil {
		return errors.New("async ingest is not configured")
	}

	payload, err := json.Marshal(dto.PublishIngestArticlesMessage{Articles: articles})
	if err != nil {
		return err
	}
	return s.publisherService.Publish(ctx, payload)
}

// Search lists a category when only a category is given, otherwise runs a
// similarity search with the question (possibly empty) as query text.
func (s *articleService) Search(ctx context.Context, request *dto.SearchRequest) (*dto.SearchResponse, error) {
	if !s.ready.Load() {
		return nil, ErrIndexNotReady
	}

	var (
		results []*entity.SearchResult
		err     error
	)
	if request.Question == "" && request.Category != "" {
		results, err = s.listByCategory(ctx, request.Category)
	} else {
		results, err = s.semanticSearch(ctx, request.Question, request.Category)
	}
	if err != nil {
		return nil, err
	}

	return &dto.SearchResponse{Results: results}, nil
}

// listByCategory compares categories case-insensitively, client side.
func (s *articleService) listByCategory(ctx context.Context, category string) ([]*entity.SearchResult, error) {
	articles, err := s.indexRepo.Scroll(ctx, s.cfg.SearchScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}

	results := make([]*entity.SearchResult, 0)
	for _, a := range articles {
		if len(results) >= s.cfg.CategoryResultLimit {
			break
		}
		if !strings.EqualFold(a.Category, category) {
			continue
		}
		results = append(results, s.toSearchResult(a, 0.0))
	}
	return results, nil
}

// semanticSearch filters on the exact stored category value, server side.
func (s *articleService) semanticSearch(ctx context.Context, question, category string) ([]*entity.SearchResult, error) {
	res, err := s.embeddingProvider.Generate(ctx, question, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var filter *contract.ArticleFilter
	if category != "" {
		filter = &contract.ArticleFilter{Category: category}
	}

	scored, err := s.indexRepo.SearchWithScore(ctx, res.Embedding.Values, s.cfg.SemanticTopK, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]*entity.SearchResult, len(scored))
	for i, hit := range scored {
		results[i] = s.toSearchResult(hit.Article, hit.Distance)
	}
	return results, nil
}

func (s *articleService) toSearchResult(a *entity.Article, score float64) *entity.SearchResult {
	return &entity.SearchResult{
		Id:       a.Id,
		Title:    a.Title,
		Category: a.Category,
		Snippet:  Snippet(a.Content, s.cfg.SnippetLength),
		Score:    score,
	}
}

// Snippet returns the first n runes of content followed by "...".
func Snippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// Select finds the article by scanning a broad similarity window of
// SelectScanLimit items. It returns false when the id is not in that window.
func (s *articleService) Select(ctx context.Context, request *dto.SelectRequest) (bool, error) {
	if !s.ready.Load() {
		return false, ErrIndexNotReady
	}

	res, err := s.embeddingProvider.Generate(ctx, "", embedding.TaskRetrievalQuery)
	if err != nil {
		return false, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := s.indexRepo.SearchWithScore(ctx, res.Embedding.Values, s.cfg.SelectScanLimit, nil)
	if err != nil {
		return false, fmt.Errorf("failed to search index: %w", err)
	}

	var found *entity.Article
	for _, hit := range scored {
		if hit.Article.Id == request.ArticleId {
			found = hit.Article
			break
		}
	}
	if found == nil {
		s.logger.Info("ARTICLE", "Article not in selection window", map[string]interface{}{
			"session_id": request.SessionId,
			"article_id": request.ArticleId,
			"scanned":    len(scored),
		})
		return false, nil
	}

	unlock := s.sessionManager.Lock(request.SessionId)
	defer unlock()

	sess, err := s.sessionManager.LoadOrCreate(ctx, request.SessionId)
	if err != nil {
		return false, err
	}
	s.stateManager.TransitionToFocused(sess, *found)
	if err := s.sessionManager.Save(ctx, sess); err != nil {
		return false, err
	}

	s.publishEvent(ctx, events.NewArticleSelectedEvent(request.SessionId, found.Id))
	return true, nil
}

// Chat answers the question against the session's selected article. Both
// turns are appended to history only when the LLM call succeeds.
func (s *articleService) Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error) {
	unlock := s.sessionManager.Lock(request.SessionId)
	defer unlock()

	sess, err := s.sessionManager.LoadOrCreate(ctx, request.SessionId)
	if err != nil {
		return nil, err
	}
	if sess.SelectedArticle == nil {
		return nil, ErrNoArticleSelected
	}

	answer, err := s.responseGenerator.GenerateGrounded(ctx, sess.SelectedArticle, sess.History, request.Question)
	if err != nil {
		return nil, err
	}

	s.stateManager.AppendTurn(sess, request.Question, answer)
	if err := s.sessionManager.Save(ctx, sess); err != nil {
		return nil, err
	}

	return &dto.ChatResponse{Answer: answer}, nil
}

// GetOrCreateHistory returns the session's ordered messages, allocating an
// empty session on first access.
func (s *articleService) GetOrCreateHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	unlock := s.sessionManager.Lock(sessionID)
	defer unlock()

	sess, err := s.sessionManager.LoadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, len(sess.History))
	copy(history, sess.History)
	return history, nil
}

// GetHistory is a read-only view; an unknown session yields an empty list
// and is not created.
func (s *articleService) GetHistory(ctx context.Context, sessionID string) ([]*dto.MessageDTO, error) {
	unlock := s.sessionManager.Lock(sessionID)
	defer unlock()

	sess, found, err := s.sessionManager.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []*dto.MessageDTO{}, nil
	}

	messages := make([]*dto.MessageDTO, len(sess.History))
	for i, m := range sess.History {
		messages[i] = &dto.MessageDTO{Role: m.Role, Content: m.Content}
	}
	return messages, nil
}

func (s *articleService) EvictSession(ctx context.Context, sessionID string) error {
	return s.sessionManager.Evict(ctx, sessionID)
}

func (s *articleService) publishEvent(ctx context.Context, event events.Event) {
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
