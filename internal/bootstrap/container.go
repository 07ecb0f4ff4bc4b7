package bootstrap

import (
	"context"
	"fmt"

	"article-rag-be/internal/config"
	"article-rag-be/internal/controller"
	"article-rag-be/internal/pkg/logger"
	"article-rag-be/internal/pkg/serverutils"
	boltRepo "article-rag-be/internal/repository/bolt"
	"article-rag-be/internal/repository/contract"
	"article-rag-be/internal/repository/implementation"
	"article-rag-be/internal/repository/memory"
	qdrantRepo "article-rag-be/internal/repository/qdrant"
	redisRepo "article-rag-be/internal/repository/redis"
	"article-rag-be/internal/service"
	"article-rag-be/pkg/embedding"
	"article-rag-be/pkg/embedding/openai"
	"article-rag-be/pkg/events"
	"article-rag-be/pkg/llm/factory"
	pktNats "article-rag-be/pkg/nats"
	"article-rag-be/pkg/resilience"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	ArticleController controller.IArticleController

	// Services
	ArticleService service.IArticleService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	closers []func() error
}

// NewContainer wires every dependency from cfg. db is only used when
// VECTOR_STORE=pgvector and may be nil otherwise. On error, anything opened
// so far is closed again.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}
	if err := c.wire(db, cfg); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to release resources after wiring error", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(db *gorm.DB, cfg *config.Config) error {
	sysLogger := c.Logger

	// 1. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 2. External Providers
	embeddingProvider, err := newEmbeddingProvider(cfg, sysLogger)
	if err != nil {
		return err
	}

	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	embeddingProvider = resilience.NewEmbedder(embeddingProvider, resilience.Settings{
		Name:              "embedding:" + cfg.Ai.EmbeddingProvider,
		RequestsPerMinute: cfg.Ai.ProviderRPM,
	}, sysLogger)
	llmProvider = resilience.NewLLM(llmProvider, resilience.Settings{
		Name:              "llm:" + cfg.Ai.LLMProvider,
		RequestsPerMinute: cfg.Ai.ProviderRPM,
	}, sysLogger)
	sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Storage
	sessionRepo, err := c.newSessionRepository(cfg)
	if err != nil {
		return err
	}
	indexRepo, err := c.newIndexRepository(db, cfg)
	if err != nil {
		return err
	}

	// 4. Domain Events (best-effort)
	var eventPublisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, events disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 5. Services
	publisherService := service.NewPublisherService(cfg.App.IngestTopic, pubSub)

	c.ArticleService = service.NewArticleService(
		indexRepo,
		sessionRepo,
		embeddingProvider,
		llmProvider,
		publisherService,
		eventPublisher,
		sysLogger,
		ArticleServiceConfig(cfg),
	)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.IngestTopic, c.ArticleService, sysLogger)

	// 6. Controllers
	var ingestGuard fiber.Handler
	if cfg.App.IngestJwtSecret != "" {
		ingestGuard = serverutils.NewJwtMiddleware(cfg.App.IngestJwtSecret)
	}
	c.ArticleController = controller.NewArticleController(c.ArticleService, ingestGuard)

	return nil
}

// ArticleServiceConfig maps the RAG settings onto the service bounds.
func ArticleServiceConfig(cfg *config.Config) service.ArticleServiceConfig {
	return service.ArticleServiceConfig{
		SearchScanLimit:     cfg.Rag.SearchScanLimit,
		CategoryResultLimit: cfg.Rag.CategoryResultLimit,
		SemanticTopK:        cfg.Rag.SemanticTopK,
		SelectScanLimit:     cfg.Rag.SelectScanLimit,
		SnippetLength:       cfg.Rag.SnippetLength,
		EmbeddingDimension:  cfg.Ai.EmbeddingDimension,
	}
}

func newEmbeddingProvider(cfg *config.Config, sysLogger logger.ILogger) (embedding.EmbeddingProvider, error) {
	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "gemini":
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	case "openai":
		if cfg.Keys.OpenAI == "" {
			return nil, fmt.Errorf("missing API key for embedding provider openai")
		}
		provider = openai.NewProvider(cfg.Keys.OpenAI, cfg.Ai.EmbeddingBaseURL, cfg.Ai.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}

	sysLogger.Info("BOOTSTRAP", "Using embedding provider", map[string]interface{}{
		"provider": cfg.Ai.EmbeddingProvider,
	})
	return provider, nil
}

func (c *Container) newIndexRepository(db *gorm.DB, cfg *config.Config) (contract.ArticleIndexRepository, error) {
	switch cfg.VectorStore.Driver {
	case "qdrant":
		client, err := qdrantRepo.NewClient(cfg.VectorStore.QdrantHost, cfg.VectorStore.QdrantPort, cfg.VectorStore.QdrantKey)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return qdrantRepo.NewArticleIndexRepository(client, cfg.VectorStore.Collection), nil
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("vector store pgvector requires DB_CONNECTION_STRING")
		}
		return implementation.NewArticleIndexRepository(db), nil
	case "memory":
		return memory.NewArticleIndexRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore.Driver)
	}
}

func (c *Container) newSessionRepository(cfg *config.Config) (contract.SessionRepository, error) {
	switch cfg.Session.Driver {
	case "memory":
		return memory.NewSessionRepository(cfg.Session.TTL), nil
	case "redis":
		rdb, err := redisRepo.NewClient(context.Background(), cfg.App.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rdb.Close)
		return redisRepo.NewSessionRepository(rdb, cfg.Session.TTL), nil
	case "bolt":
		db, err := boltRepo.Open(cfg.Session.BoltPath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
		return boltRepo.NewSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Driver)
	}
}

// Close releases external connections in reverse order of creation.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
