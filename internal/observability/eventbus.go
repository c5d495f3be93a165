package observability

import (
	"context"
	"log/slog"
)

// Cache lifecycle event types published on the bus.
const (
	EventCacheHit      = "cache.hit"
	EventCacheMiss     = "cache.miss"
	EventCacheExpired  = "cache.expired"
	EventCacheError    = "cache.error"
	EventPrefetch      = "cache.prefetch"
	EventConsolidation = "diary.consolidation"
	EventInsight       = "diary.insight"
)

// EventBus implements the domain EventPublisher interface.
type EventBus struct {
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
	}
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if e.logger == nil {
		return
	}

	// Convert map to slog attributes.
	attrs := make([]interface{}, 0, len(data)*2)
	for k, v := range data {
		attrs = append(attrs, k, v)
	}

	e.logger.InfoContext(ctx, eventType, attrs...)
}
