package qdrant

import (
	"context"
	"fmt"

	"article-rag-be/internal/entity"
	"article-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadId       = "id"
	payloadTitle    = "title"
	payloadCategory = "category"
	payloadContent  = "content"
)

type ArticleIndexRepositoryImpl struct {
	client     *qdrant.Client
	collection string
}

func NewArticleIndexRepository(client *qdrant.Client, collection string) contract.ArticleIndexRepository {
	return &ArticleIndexRepositoryImpl{
		client:     client,
		collection: collection,
	}
}

// NewClient connects to Qdrant over gRPC.
func NewClient(host string, port int, apiKey string) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", host, port, err)
	}
	return client, nil
}

func (r *ArticleIndexRepositoryImpl) Recreate(ctx context.Context, dimension int) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", r.collection, err)
	}
	if exists {
		if err := r.client.DeleteCollection(ctx, r.collection); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", r.collection, err)
		}
	}

	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", r.collection, err)
	}
	return nil
}

func (r *ArticleIndexRepositoryImpl) InsertBulk(ctx context.Context, articles []*entity.Article, vectors [][]float32) error {
	if len(articles) != len(vectors) {
		return fmt.Errorf("articles and vectors length mismatch: %d != %d", len(articles), len(vectors))
	}
	if len(articles) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(articles))
	for i, a := range articles {
		payload, err := qdrant.TryValueMap(map[string]any{
			payloadId:       a.Id,
			payloadTitle:    a.Title,
			payloadCategory: a.Category,
			payloadContent:  a.Content,
		})
		if err != nil {
			return fmt.Errorf("failed to build payload for article %s: %w", a.Id, err)
		}

		points[i] = &qdrant.PointStruct{
			// Point ids are opaque; article ids are not guaranteed to be uuids.
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func (r *ArticleIndexRepositoryImpl) Scroll(ctx context.Context, limit int) ([]*entity.Article, error) {
	points, err := r.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: r.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection %s: %w", r.collection, err)
	}

	articles := make([]*entity.Article, len(points))
	for i, p := range points {
		articles[i] = toArticle(p.GetPayload())
	}
	return articles, nil
}

func (r *ArticleIndexRepositoryImpl) SearchWithScore(ctx context.Context, vector []float32, limit int, filter *contract.ArticleFilter) ([]*contract.ScoredArticle, error) {
	query := &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter != nil && filter.Category != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadCategory, filter.Category),
			},
		}
	}

	points, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", r.collection, err)
	}

	scored := make([]*contract.ScoredArticle, len(points))
	for i, p := range points {
		// Cosine collections report similarity; convert so lower is closer.
		scored[i] = &contract.ScoredArticle{
			Article:  toArticle(p.GetPayload()),
			Distance: 1 - float64(p.GetScore()),
		}
	}
	return scored, nil
}

func toArticle(payload map[string]*qdrant.Value) *entity.Article {
	return &entity.Article{
		Id:       payload[payloadId].GetStringValue(),
		Title:    payload[payloadTitle].GetStringValue(),
		Category: payload[payloadCategory].GetStringValue(),
		Content:  payload[payloadContent].GetStringValue(),
	}
}
