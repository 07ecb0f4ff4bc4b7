package contract

import (
	"context"

	"article-rag-be/internal/entity"
)

// ScoredArticle wraps an Article with its cosine distance to the query
type ScoredArticle struct {
	Article  *entity.Article
	Distance float64 // 0.0 = identical, lower is closer
}

// ArticleFilter narrows a similarity search. Category is an exact match on
// the stored value; empty means unfiltered.
type ArticleFilter struct {
	Category string
}

type ArticleIndexRepository interface {
	// Recreate drops the collection, if any, and creates an empty one sized for dimension.
	Recreate(ctx context.Context, dimension int) error
	InsertBulk(ctx context.Context, articles []*entity.Article, vectors [][]float32) error
	// Scroll returns up to limit stored articles in the index's natural order.
	Scroll(ctx context.Context, limit int) ([]*entity.Article, error)
	// SearchWithScore returns up to limit articles ordered by non-decreasing distance.
	SearchWithScore(ctx context.Context, vector []float32, limit int, filter *ArticleFilter) ([]*ScoredArticle, error)
}
