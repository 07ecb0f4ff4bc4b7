// Package resilience wraps the external providers with a circuit breaker and
// an optional request rate limit. Calls are never retried.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"article-rag-be/internal/pkg/logger"
	"article-rag-be/pkg/embedding"
	"article-rag-be/pkg/llm"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type Settings struct {
	Name              string
	RequestsPerMinute int // 0 disables the limiter
	OpenTimeout       time.Duration
}

type guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func newGuard(s Settings, log logger.ILogger) *guard {
	openTimeout := s.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// A caller giving up says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("RESILIENCE", "Circuit breaker state changed", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if s.RequestsPerMinute > 0 {
		burst := s.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(s.RequestsPerMinute)/60.0), burst)
	}

	return &guard{name: s.Name, breaker: breaker, limiter: limiter}
}

func (g *guard) do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limited: %w", g.name, err)
	}

	result, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s unavailable: %w", g.name, err)
	}
	return result, err
}

type guardedLLM struct {
	next  llm.LLMProvider
	guard *guard
}

// NewLLM guards every Chat and Generate call of next.
func NewLLM(next llm.LLMProvider, s Settings, log logger.ILogger) llm.LLMProvider {
	return &guardedLLM{next: next, guard: newGuard(s, log)}
}

func (g *guardedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	result, err := g.guard.do(ctx, func() (interface{}, error) {
		return g.next.Chat(ctx, history, options...)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *guardedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	result, err := g.guard.do(ctx, func() (interface{}, error) {
		return g.next.Generate(ctx, prompt, options...)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

type guardedEmbedder struct {
	next  embedding.EmbeddingProvider
	guard *guard
}

// NewEmbedder guards every Generate call of next.
func NewEmbedder(next embedding.EmbeddingProvider, s Settings, log logger.ILogger) embedding.EmbeddingProvider {
	return &guardedEmbedder{next: next, guard: newGuard(s, log)}
}

func (g *guardedEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	result, err := g.guard.do(ctx, func() (interface{}, error) {
		return g.next.Generate(ctx, text, taskType)
	})
	if err != nil {
		return nil, err
	}
	return result.(*embedding.EmbeddingResponse), nil
}
