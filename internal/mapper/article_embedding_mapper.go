package mapper

import (
	"article-rag-be/internal/entity"
	"article-rag-be/internal/model"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ArticleEmbeddingMapper struct{}

func NewArticleEmbeddingMapper() *ArticleEmbeddingMapper {
	return &ArticleEmbeddingMapper{}
}

func (m *ArticleEmbeddingMapper) ToEntity(e *model.ArticleEmbedding) *entity.Article {
	if e == nil {
		return nil
	}

	return &entity.Article{
		Id:       e.ArticleId,
		Title:    e.Title,
		Category: e.Category,
		Content:  e.Content,
	}
}

func (m *ArticleEmbeddingMapper) ToModel(a *entity.Article, vector []float32, position int) *model.ArticleEmbedding {
	if a == nil {
		return nil
	}

	return &model.ArticleEmbedding{
		Id:             uuid.New(),
		ArticleId:      a.Id,
		Title:          a.Title,
		Category:       a.Category,
		Content:        a.Content,
		EmbeddingValue: pgvector.NewVector(vector),
		Position:       position,
	}
}

func (m *ArticleEmbeddingMapper) ToEntities(embeddings []*model.ArticleEmbedding) []*entity.Article {
	entities := make([]*entity.Article, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
