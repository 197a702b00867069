package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	redisclient "github.com/medicapp/backend/internal/infrastructure/clients/redis"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
)

// subscriberBuffer is how many undelivered events a subscriber may lag behind
const subscriberBuffer = 100

// RedisEventBus carries provider events over Redis Pub/Sub. Every Subscribe
// call owns one Redis subscription that lives until its context is done or
// the bus is closed.
type RedisEventBus struct {
	client *redisclient.Client
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends an event to every instance subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("provider_id", event.ProviderID).
		Msg("published provider event")
	return nil
}

// Subscribe returns events published on channel. The returned channel is
// closed once ctx is done or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error) {
	pubsub := b.client.Client().Subscribe(ctx, channel)
	// Wait for the confirmation so no publish after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan *entities.ProviderEvent, subscriberBuffer)
	b.wg.Add(1)
	go b.forward(ctx, channel, pubsub, out)

	observability.LoggerFromContext(ctx).Info().Str("channel", channel).Msg("subscribed to channel")
	return out, nil
}

func (b *RedisEventBus) forward(ctx context.Context, channel string, pubsub *redis.PubSub, out chan<- *entities.ProviderEvent) {
	logger := observability.GetLogger()
	defer b.wg.Done()
	defer close(out)
	defer func() {
		if err := pubsub.Close(); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.ProviderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
				continue
			}

			select {
			case out <- &event:
			default:
				logger.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
			}
		}
	}
}

// Close ends every subscription and waits for their channels to close
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}
