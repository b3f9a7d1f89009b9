package event

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the Redis Pub/Sub channel shipment events are relayed to
const DefaultRelayChannel = "shipping:events"

// RedisPublisher is the subset of the Redis client used by the relay
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisRelay forwards domain events to a Redis Pub/Sub channel so that
// processes outside this one can observe them. It is an outbound bridge only.
type RedisRelay struct {
	client     RedisPublisher
	channel    string
	serializer *EventSerializer
	eventTypes []string
	logger     *zap.Logger
}

// RedisRelayOption is a functional option for configuring the relay
type RedisRelayOption func(*RedisRelay)

// WithRelayChannel sets the Pub/Sub channel name
func WithRelayChannel(channel string) RedisRelayOption {
	return func(r *RedisRelay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithRelayLogger sets the logger for the relay
func WithRelayLogger(logger *zap.Logger) RedisRelayOption {
	return func(r *RedisRelay) {
		r.logger = logger
	}
}

// WithRelayEventTypes overrides the relayed event types
func WithRelayEventTypes(eventTypes ...string) RedisRelayOption {
	return func(r *RedisRelay) {
		r.eventTypes = eventTypes
	}
}

// NewRedisRelay creates a relay publishing through client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisRelay(client RedisPublisher, serializer *EventSerializer, opts ...RedisRelayOption) *RedisRelay {
	r := &RedisRelay{
		client:     client,
		channel:    DefaultRelayChannel,
		serializer: serializer,
		eventTypes: []string{shipping.EventTypeShipmentCreated},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle publishes the serialized event to the relay channel
func (r *RedisRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	data, err := r.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	receivers, err := r.client.Publish(ctx, r.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", r.channel, err)
	}

	r.logger.Debug("relayed event to redis",
		zap.String("event_type", event.EventType()),
		zap.String("channel", r.channel),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// EventTypes returns the event types this relay forwards
func (r *RedisRelay) EventTypes() []string {
	return r.eventTypes
}

// Channel returns the Pub/Sub channel name
func (r *RedisRelay) Channel() string {
	return r.channel
}

var _ shared.EventHandler = (*RedisRelay)(nil)
