package events

import (
	"context"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "article.ingested").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher delivers events to a bus. Delivery is best-effort; callers log
// and continue on error.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeArticleIngested = "article.ingested"
	TypeArticleSelected = "article.selected"
)

func NewArticleIngestedEvent(count, dimension int) BaseEvent {
	return BaseEvent{
		Type: TypeArticleIngested,
		Data: map[string]interface{}{
			"count":     count,
			"dimension": dimension,
		},
		OccurredAt: time.Now(),
	}
}

func NewArticleSelectedEvent(sessionID, articleID string) BaseEvent {
	return BaseEvent{
		Type: TypeArticleSelected,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"article_id": articleID,
		},
		OccurredAt: time.Now(),
	}
}

// NopPublisher drops every event. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
