package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ArticleEmbedding stores one article with its vector. The vector column is
// untyped so the table accepts whatever dimension the embedding model emits.
type ArticleEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ArticleId      string          `gorm:"type:text;not null;index"`
	Title          string          `gorm:"type:text"`
	Category       string          `gorm:"type:text;index"`
	Content        string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector"`
	Position       int             `gorm:"not null;index"` // insertion order
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (ArticleEmbedding) TableName() string {
	return "article_embeddings"
}
