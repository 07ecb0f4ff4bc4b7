package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"article-rag-be/internal/dto"
	"article-rag-be/internal/entity"
	"article-rag-be/internal/pkg/logger"
	"article-rag-be/internal/repository/contract"
	"article-rag-be/internal/repository/memory"
	"article-rag-be/pkg/embedding"
	"article-rag-be/pkg/events"
	"article-rag-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder buckets lowercase tokens into a small vector. Empty text maps
// to the zero vector, which every index treats as equidistant.
type hashEmbedder struct {
	dim int
	err error
}

func (e *hashEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)] += 1
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

type fakeLLM struct {
	mu    sync.Mutex
	calls [][]llm.Message
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]llm.Message(nil), history...))
	if f.err != nil {
		return "", f.err
	}
	last := history[len(history)-1]
	return "answer to: " + last.Content, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	svc       IArticleService
	llm       *fakeLLM
	embedder  *hashEmbedder
	publisher *recordingPublisher
	sessions  contract.SessionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		llm:       &fakeLLM{},
		embedder:  &hashEmbedder{dim: 64},
		publisher: &recordingPublisher{},
		sessions:  memory.NewSessionRepository(0),
	}
	f.svc = NewArticleService(
		memory.NewArticleIndexRepository(),
		f.sessions,
		f.embedder,
		f.llm,
		nil,
		f.publisher,
		logger.NewNopLogger(),
		DefaultArticleServiceConfig(),
	)
	return f
}

func (f *fixture) ingest(t *testing.T, articles ...*entity.Article) {
	t.Helper()
	count, err := f.svc.Ingest(context.Background(), articles)
	require.NoError(t, err)
	require.Equal(t, len(articles), count)
}

func makeArticles(n int, category string) []*entity.Article {
	articles := make([]*entity.Article, n)
	for i := range articles {
		articles[i] = &entity.Article{
			Id:       fmt.Sprintf("%s-%d", strings.ToLower(category), i),
			Title:    fmt.Sprintf("%s story %d", category, i),
			Category: category,
			Content:  fmt.Sprintf("%s news item number %d", category, i),
		}
	}
	return articles
}

func TestNotReadyBeforeIngest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.svc.IndexReady())

	_, err := f.svc.Search(ctx, &dto.SearchRequest{Question: "anything"})
	assert.ErrorIs(t, err, ErrIndexNotReady)

	_, err = f.svc.Search(ctx, &dto.SearchRequest{Category: "Climate"})
	assert.ErrorIs(t, err, ErrIndexNotReady)

	_, err = f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "1"})
	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestIngest_EmptyBatchMarksReady(t *testing.T) {
	f := newFixture(t)

	count, err := f.svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.True(t, f.svc.IndexReady())

	res, err := f.svc.Search(context.Background(), &dto.SearchRequest{Category: "Climate"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestIngest_EmbeddingFailureKeepsIndexNotReady(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("provider down")

	_, err := f.svc.Ingest(context.Background(), makeArticles(1, "Climate"))
	assert.Error(t, err)
	assert.False(t, f.svc.IndexReady())
}

func TestIngest_ReplacesPreviousCorpus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ingest(t, makeArticles(3, "Climate")...)
	f.ingest(t, makeArticles(2, "Economy")...)

	res, err := f.svc.Search(ctx, &dto.SearchRequest{Category: "Climate"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	res, err = f.svc.Search(ctx, &dto.SearchRequest{Category: "Economy"})
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
}

func TestIngest_PublishesEvent(t *testing.T) {
	f := newFixture(t)

	f.ingest(t, makeArticles(2, "Climate")...)

	assert.Equal(t, []string{events.TypeArticleIngested}, f.publisher.types())
}

func TestSearch_CategoryBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	articles := append(makeArticles(30, "Climate"), makeArticles(5, "Economy")...)
	f.ingest(t, articles...)

	res, err := f.svc.Search(ctx, &dto.SearchRequest{Category: "climate"})
	require.NoError(t, err)

	require.Len(t, res.Results, 20)
	for _, r := range res.Results {
		assert.Equal(t, "Climate", r.Category)
		assert.Equal(t, 0.0, r.Score)
	}
	assert.Equal(t, 0, f.llm.callCount())
}

func TestSearch_CategoryBranchOnlyScansWindow(t *testing.T) {
	f := newFixture(t)

	articles := append(makeArticles(100, "Economy"), makeArticles(3, "Climate")...)
	f.ingest(t, articles...)

	res, err := f.svc.Search(context.Background(), &dto.SearchRequest{Category: "Climate"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestSearch_SemanticBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	articles := append(makeArticles(10, "Climate"), makeArticles(10, "Economy")...)
	f.ingest(t, articles...)

	res, err := f.svc.Search(ctx, &dto.SearchRequest{Question: "economy news"})
	require.NoError(t, err)

	require.Len(t, res.Results, 5)
	for i := 1; i < len(res.Results); i++ {
		assert.LessOrEqual(t, res.Results[i-1].Score, res.Results[i].Score)
	}
	assert.Equal(t, "Economy", res.Results[0].Category)
}

func TestSearch_SemanticCategoryFilterIsExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	articles := append(makeArticles(3, "Climate"), makeArticles(3, "Economy")...)
	f.ingest(t, articles...)

	res, err := f.svc.Search(ctx, &dto.SearchRequest{Question: "news", Category: "Climate"})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	for _, r := range res.Results {
		assert.Equal(t, "Climate", r.Category)
	}

	res, err = f.svc.Search(ctx, &dto.SearchRequest{Question: "news", Category: "climate"})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestSearch_NoQuestionNoCategory(t *testing.T) {
	f := newFixture(t)

	f.ingest(t, makeArticles(8, "Climate")...)

	res, err := f.svc.Search(context.Background(), &dto.SearchRequest{})
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
}

func TestSearch_Snippet(t *testing.T) {
	f := newFixture(t)

	long := strings.Repeat("é", 250)
	f.ingest(t,
		&entity.Article{Id: "long", Title: "Long", Category: "X", Content: long},
		&entity.Article{Id: "short", Title: "Short", Category: "X", Content: "brief"},
	)

	res, err := f.svc.Search(context.Background(), &dto.SearchRequest{Category: "X"})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)

	assert.Equal(t, strings.Repeat("é", 200)+"...", res.Results[0].Snippet)
	assert.Equal(t, 203, utf8.RuneCountInString(res.Results[0].Snippet))
	assert.Equal(t, "brief...", res.Results[1].Snippet)
}

func TestSearch_EmbeddingFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, makeArticles(2, "Climate")...)

	f.embedder.err = errors.New("provider down")
	_, err := f.svc.Search(context.Background(), &dto.SearchRequest{Question: "q"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrIndexNotReady)
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(5, "Climate")...)

	ok, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-3"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "missing"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{events.TypeArticleIngested, events.TypeArticleSelected}, f.publisher.types())
}

func TestSelect_OnlyWithinScanWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(101, "Climate")...)

	ok, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-99"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-100"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChat_WithoutSelection(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, makeArticles(1, "Climate")...)

	assert.NotPanics(t, func() {
		_, err := f.svc.Chat(context.Background(), &dto.ChatRequest{SessionId: "s1", Question: "hi"})
		assert.ErrorIs(t, err, ErrNoArticleSelected)
	})
	assert.Equal(t, 0, f.llm.callCount())
}

func TestChat_AccumulatesHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, &entity.Article{Id: "1", Title: "A", Category: "Climate", Content: "Flooding in coastal towns"})

	ok, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "1"})
	require.NoError(t, err)
	require.True(t, ok)

	first, err := f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "What happened?"})
	require.NoError(t, err)
	second, err := f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "Where?"})
	require.NoError(t, err)

	history, err := f.svc.GetOrCreateHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "What happened?"},
		{Role: llm.RoleAssistant, Content: first.Answer},
		{Role: llm.RoleUser, Content: "Where?"},
		{Role: llm.RoleAssistant, Content: second.Answer},
	}, history)

	require.Len(t, f.llm.calls, 2)

	firstCall := f.llm.calls[0]
	require.Len(t, firstCall, 2)
	assert.Equal(t, llm.RoleSystem, firstCall[0].Role)
	assert.Contains(t, firstCall[0].Content, "Flooding in coastal towns")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What happened?"}, firstCall[1])

	secondCall := f.llm.calls[1]
	require.Len(t, secondCall, 4)
	assert.Equal(t, "What happened?", secondCall[1].Content)
	assert.Equal(t, first.Answer, secondCall[2].Content)
	assert.Equal(t, "Where?", secondCall[3].Content)
}

func TestChat_LLMFailureLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(1, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)

	f.llm.err = errors.New("rate limited")
	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "q"})
	assert.Error(t, err)

	history, err := f.svc.GetOrCreateHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSelect_KeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(2, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "q1"})
	require.NoError(t, err)

	_, err = f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-1"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "q2"})
	require.NoError(t, err)

	history, err := f.svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 4)

	lastCall := f.llm.calls[len(f.llm.calls)-1]
	assert.Contains(t, lastCall[0].Content, "Climate news item number 1")
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(1, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s2", Question: "q"})
	assert.ErrorIs(t, err, ErrNoArticleSelected)
}

func TestGetOrCreateHistory_UnseenSession(t *testing.T) {
	f := newFixture(t)

	history, err := f.svc.GetOrCreateHistory(context.Background(), "fresh")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestEvictSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(1, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "q"})
	require.NoError(t, err)

	require.NoError(t, f.svc.EvictSession(ctx, "s1"))

	history, err := f.svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "q"})
	assert.ErrorIs(t, err, ErrNoArticleSelected)
}

func TestChat_ConcurrentTurnsDoNotInterleave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(1, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: fmt.Sprintf("q%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := f.svc.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 20)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, llm.RoleUser, history[i].Role)
		assert.Equal(t, llm.RoleAssistant, history[i+1].Role)
		assert.Equal(t, "answer to: "+history[i].Content, history[i+1].Content)
	}
}

func TestGetOrCreateHistory_ConcurrentWithChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(1, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: fmt.Sprintf("q%d", i)})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			history, err := f.svc.GetOrCreateHistory(ctx, "s1")
			assert.NoError(t, err)
			assert.Zero(t, len(history)%2, "history must hold whole turns")
		}()
	}
	wg.Wait()

	history, err := f.svc.GetOrCreateHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 40)
}

func TestGetOrCreateHistory_ReturnsCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ingest(t, makeArticles(1, "Climate")...)

	_, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "climate-0"})
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "q"})
	require.NoError(t, err)

	history, err := f.svc.GetOrCreateHistory(ctx, "s1")
	require.NoError(t, err)
	history[0].Content = "tampered"

	again, err := f.svc.GetOrCreateHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "q", again[0].Content)
}

func TestGetHistory_DoesNotCreateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	history, err := f.svc.GetHistory(ctx, "ghost")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, found, err := f.sessions.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ingest(t, &entity.Article{Id: "1", Title: "A", Content: "Flooding in coastal towns", Category: "Climate"})

	res, err := f.svc.Search(ctx, &dto.SearchRequest{Category: "climate"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "1", res.Results[0].Id)

	ok, err := f.svc.Select(ctx, &dto.SelectRequest{SessionId: "s1", ArticleId: "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	answer, err := f.svc.Chat(ctx, &dto.ChatRequest{SessionId: "s1", Question: "What happened?"})
	require.NoError(t, err)
	assert.NotEmpty(t, answer.Answer)
}

func TestIngestAsync_WithoutPublisher(t *testing.T) {
	f := newFixture(t)

	err := f.svc.IngestAsync(context.Background(), makeArticles(1, "Climate"))
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "...", Snippet("", 200))
	assert.Equal(t, "abc...", Snippet("abc", 200))
	assert.Equal(t, "ab...", Snippet("abc", 2))
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
