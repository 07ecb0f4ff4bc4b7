package dto

import "article-rag-be/internal/entity"

type IngestArticleRequest struct {
	Id       string `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category"`
}

type IngestArticlesResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type QueueArticlesResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type SearchRequest struct {
	Question string `json:"question"`
	Category string `json:"category"`
}

type SearchResponse struct {
	Results []*entity.SearchResult `json:"results"`
}

type SelectRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	ArticleId string `json:"article_id" validate:"required"`
}

type SelectResponse struct {
	Status string `json:"status"`
}

type ChatRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionStatusResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	IndexReady bool   `json:"index_ready"`
}

// PublishIngestArticlesMessage is the payload carried on the ingest topic.
type PublishIngestArticlesMessage struct {
	Articles []*entity.Article `json:"articles"`
}
