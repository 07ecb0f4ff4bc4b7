package response

import (
	"context"
	"fmt"

	"article-rag-be/internal/entity"
	"article-rag-be/internal/pkg/logger"
	"article-rag-be/pkg/llm"
	"article-rag-be/pkg/rag/prompt"
)

// Generator creates answers grounded in a single article
type Generator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

// NewGenerator creates a new response generator
func NewGenerator(llmProvider llm.LLMProvider, logger logger.ILogger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// GenerateGrounded sends [system prompt] + history + question to the LLM.
// history is not modified.
func (g *Generator) GenerateGrounded(
	ctx context.Context,
	article *entity.Article,
	history []llm.Message,
	question string,
) (string, error) {
	systemPrompt := prompt.NewGroundedBuilder(article).Build()

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	answer, err := g.llmProvider.Chat(ctx, messages, llm.WithTemperature(0))
	if err != nil {
		g.logger.Error("GENERATION", "LLM generation failed", map[string]interface{}{
			"article_id": article.Id,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	g.logger.Debug("GENERATION", "Answer generated", map[string]interface{}{
		"article_id":    article.Id,
		"history_turns": len(history),
	})
	return answer, nil
}
