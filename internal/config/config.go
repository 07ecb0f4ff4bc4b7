package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Keys        APIKeys
	Ai          AIConfig
	VectorStore VectorStoreConfig
	Rag         RagConfig
	Session     SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	IngestTopic        string
	IngestJwtSecret    string // empty disables the ingest guard
	SeedFile           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
}

type AIConfig struct {
	EmbeddingProvider  string // "openai", "gemini" or "ollama"
	EmbeddingModel     string
	EmbeddingBaseURL   string
	EmbeddingDimension int
	OllamaBaseURL      string
	OllamaModel        string
	LLMProvider        string // "openai" or "ollama"
	LLMModel           string
	LLMBaseURL         string
	ProviderRPM        int // requests per minute per provider, 0 = unlimited
}

type VectorStoreConfig struct {
	Driver     string // "qdrant", "pgvector" or "memory"
	QdrantHost string
	QdrantPort int
	QdrantKey  string
	Collection string
}

type RagConfig struct {
	SearchScanLimit     int
	CategoryResultLimit int
	SemanticTopK        int
	SelectScanLimit     int
	SnippetLength       int
}

type SessionConfig struct {
	Driver   string // "memory", "redis" or "bolt"
	TTL      time.Duration
	BoltPath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8000"),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS",
				"https://v0-fastapi-frontend-amber.vercel.app,http://localhost:3000,http://localhost:8000,http://127.0.0.1:3000,http://127.0.0.1:8000"),
			NatsURL:         getEnv("NATS_URL", ""),
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
			IngestTopic:     getEnv("ARTICLE_INGEST_TOPIC", "INGEST_ARTICLES"),
			IngestJwtSecret: getEnv("INGEST_JWT_SECRET", ""),
			SeedFile:        getEnv("SEED_FILE", "data/mock_articles.json"),
			OtelEnabled:     getEnv("OTEL_ENABLED", "false") == "true",
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "openai"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 1536),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:        getEnv("LLM_PROVIDER", "openai"),
			LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
			LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
			ProviderRPM:        getEnvAsInt("PROVIDER_RPM", 0),
		},
		VectorStore: VectorStoreConfig{
			Driver:     getEnv("VECTOR_STORE", "qdrant"),
			QdrantHost: getEnv("QDRANT_HOST", "qdrant"),
			QdrantPort: getEnvAsInt("QDRANT_PORT", 6334),
			QdrantKey:  getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "articles"),
		},
		Rag: RagConfig{
			SearchScanLimit:     getEnvAsInt("SEARCH_SCAN_LIMIT", 100),
			CategoryResultLimit: getEnvAsInt("CATEGORY_RESULT_LIMIT", 20),
			SemanticTopK:        getEnvAsInt("SEMANTIC_TOP_K", 5),
			SelectScanLimit:     getEnvAsInt("SELECT_SCAN_LIMIT", 100),
			SnippetLength:       getEnvAsInt("SNIPPET_LENGTH", 200),
		},
		Session: SessionConfig{
			Driver:   getEnv("SESSION_STORE", "memory"),
			TTL:      getEnvAsDuration("SESSION_TTL", 0),
			BoltPath: getEnv("SESSION_BOLT_PATH", "sessions.db"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
