package implementation

import (
	"context"
	"fmt"
	"sync"

	"article-rag-be/internal/entity"
	"article-rag-be/internal/mapper"
	"article-rag-be/internal/model"
	"article-rag-be/internal/repository/contract"
	"article-rag-be/internal/repository/scope"
	"article-rag-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ArticleIndexRepositoryImpl struct {
	db        *gorm.DB
	mapper    *mapper.ArticleEmbeddingMapper
	mu        sync.RWMutex
	dimension int // set by Recreate; 0 until the first recreate in this process
}

func NewArticleIndexRepository(db *gorm.DB) contract.ArticleIndexRepository {
	return &ArticleIndexRepositoryImpl{
		db:     db,
		mapper: mapper.NewArticleEmbeddingMapper(),
	}
}

// Recreate drops and re-migrates the table. The vector column is untyped, so
// the dimension is remembered here and checked by InsertBulk.
func (r *ArticleIndexRepositoryImpl) Recreate(ctx context.Context, dimension int) error {
	db := r.db.WithContext(ctx)

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	if err := db.Migrator().DropTable(&model.ArticleEmbedding{}); err != nil {
		return fmt.Errorf("failed to drop article_embeddings: %w", err)
	}
	if err := db.AutoMigrate(&model.ArticleEmbedding{}); err != nil {
		return fmt.Errorf("failed to migrate article_embeddings: %w", err)
	}

	r.mu.Lock()
	r.dimension = dimension
	r.mu.Unlock()
	return nil
}

func (r *ArticleIndexRepositoryImpl) InsertBulk(ctx context.Context, articles []*entity.Article, vectors [][]float32) error {
	if len(articles) != len(vectors) {
		return fmt.Errorf("articles and vectors length mismatch: %d != %d", len(articles), len(vectors))
	}
	if len(articles) == 0 {
		return nil
	}

	r.mu.RLock()
	dimension := r.dimension
	r.mu.RUnlock()
	for i := range vectors {
		if dimension > 0 && len(vectors[i]) != dimension {
			return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(vectors[i]), dimension)
		}
	}

	var offset int64
	if err := r.db.WithContext(ctx).Model(&model.ArticleEmbedding{}).Count(&offset).Error; err != nil {
		return err
	}

	models := make([]*model.ArticleEmbedding, len(articles))
	for i, a := range articles {
		models[i] = r.mapper.ToModel(a, vectors[i], int(offset)+i)
	}

	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

func (r *ArticleIndexRepositoryImpl) Scroll(ctx context.Context, limit int) ([]*entity.Article, error) {
	var models []*model.ArticleEmbedding
	err := r.db.WithContext(ctx).
		Scopes(scope.OrderByPosition).
		Scopes(specification.Limit{N: limit}.Apply).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

// SearchWithScore orders by pgvector cosine distance (embedding_value <=> query).
func (r *ArticleIndexRepositoryImpl) SearchWithScore(ctx context.Context, vector []float32, limit int, filter *contract.ArticleFilter) ([]*contract.ScoredArticle, error) {
	type result struct {
		model.ArticleEmbedding
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	query := r.db.WithContext(ctx).
		Table("article_embeddings").
		Select("article_embeddings.*, embedding_value <=> ? AS distance", queryVector)
	specs := []specification.Specification{}
	if filter != nil {
		specs = append(specs, specification.ByCategory{Category: filter.Category})
	}
	specs = append(specs,
		specification.OrderBy{Field: "distance"},
		specification.OrderBy{Field: "position"},
		specification.Limit{N: limit},
	)

	err := specification.Apply(query, specs...).Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredArticle, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredArticle{
			Article:  r.mapper.ToEntity(&res.ArticleEmbedding),
			Distance: res.Distance,
		}
	}
	return scored, nil
}
