package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"skillquest/internal/cache"
	"skillquest/internal/domain"
	"skillquest/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisEventPublisher implements domain.EventPublisher over Redis pub/sub.
// Each event type gets its own channel so consumers can subscribe to the
// kinds they care about.
type RedisEventPublisher struct {
	client *redis.Client
}

// NewRedisEventPublisher creates a new instance of RedisEventPublisher.
func NewRedisEventPublisher(client *redis.Client) domain.EventPublisher {
	return &RedisEventPublisher{client: client}
}

// Publish serializes the event to JSON and publishes it. Delivery is at most
// once; an event published with no subscribers is dropped, which is fine for
// celebratory notifications.
func (p *RedisEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := fmt.Sprintf("%s:%s", cache.EventChannelPrefix, event.Type)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", channel, err)
	}

	logger.Get().Debug("Published domain event",
		zap.String("channel", channel),
		zap.String("type", string(event.Type)),
		zap.String("userID", event.UserID))
	return nil
}
