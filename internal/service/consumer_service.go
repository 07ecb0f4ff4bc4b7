package service

import (
	"context"
	"encoding/json"

	"article-rag-be/internal/dto"
	"article-rag-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	articleService IArticleService
	logger         logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	articleService IArticleService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		articleService: articleService,
		logger:         logger,
	}
}

// Consume subscribes to the ingest topic and processes batches in the
// background until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestArticlesMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite redelivery
		return
	}

	cs.logger.Info("CONSUMER", "Processing ingest batch", map[string]interface{}{
		"message_id": msg.UUID,
		"count":      len(payload.Articles),
	})

	// Failed batches are dropped, not redelivered.
	count, err := cs.articleService.Ingest(ctx, payload.Articles)
	if err != nil {
		cs.logger.Error("CONSUMER", "Ingest batch failed", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info("CONSUMER", "Ingest batch completed", map[string]interface{}{
		"message_id": msg.UUID,
		"count":      count,
	})
	msg.Ack()
}
