package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"article-rag-be/internal/entity"
	"article-rag-be/internal/repository/contract"
)

type indexedArticle struct {
	article entity.Article
	vector  []float32
}

// ArticleIndexRepository is a brute-force in-process index. Scroll returns
// articles in insertion order.
type ArticleIndexRepository struct {
	mu        sync.RWMutex
	dimension int
	items     []indexedArticle
}

func NewArticleIndexRepository() contract.ArticleIndexRepository {
	return &ArticleIndexRepository{}
}

func (r *ArticleIndexRepository) Recreate(ctx context.Context, dimension int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dimension = dimension
	r.items = nil
	return nil
}

func (r *ArticleIndexRepository) InsertBulk(ctx context.Context, articles []*entity.Article, vectors [][]float32) error {
	if len(articles) != len(vectors) {
		return fmt.Errorf("articles and vectors length mismatch: %d != %d", len(articles), len(vectors))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range articles {
		if r.dimension > 0 && len(vectors[i]) != r.dimension {
			return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(vectors[i]), r.dimension)
		}
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		r.items = append(r.items, indexedArticle{article: *a, vector: vec})
	}
	return nil
}

func (r *ArticleIndexRepository) Scroll(ctx context.Context, limit int) ([]*entity.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.items)
	if limit >= 0 && limit < n {
		n = limit
	}
	result := make([]*entity.Article, n)
	for i := 0; i < n; i++ {
		a := r.items[i].article
		result[i] = &a
	}
	return result, nil
}

func (r *ArticleIndexRepository) SearchWithScore(ctx context.Context, vector []float32, limit int, filter *contract.ArticleFilter) ([]*contract.ScoredArticle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scored := make([]*contract.ScoredArticle, 0, len(r.items))
	for _, item := range r.items {
		if filter != nil && filter.Category != "" && item.article.Category != filter.Category {
			continue
		}
		a := item.article
		scored = append(scored, &contract.ScoredArticle{
			Article:  &a,
			Distance: cosineDistance(vector, item.vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	if limit >= 0 && limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

// cosineDistance returns 1 - cos(a, b). A zero vector on either side is at
// distance 1 from everything.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
