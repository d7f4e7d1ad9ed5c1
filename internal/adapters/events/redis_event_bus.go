package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

// RedisEventBus carries roster events between instances over Redis Pub/Sub.
// Each instance holds one Redis subscription per channel and fans received
// events out to its local subscribers.
type RedisEventBus struct {
	client      *redisclient.Client
	subscribers *fanout

	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscribers:   newFanout(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish sends event to every instance subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.RosterEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal roster event: %w", err)
	}

	receivers, err := b.client.Client().Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish roster event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Int64("receivers", receivers).
		Msg("Published roster event")
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RosterEvent, error) {
	b.mu.Lock()
	eventChan, _ := b.subscribers.add(channel)
	if _, ok := b.subscriptions[channel]; !ok && b.ctx.Err() == nil {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		go b.receive(channel, pubsub)
	}
	b.mu.Unlock()

	observability.GetLogger().Info().
		Str("channel", channel).
		Int("subscribers", b.subscribers.count(channel)).
		Msg("Subscribed to channel")

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.subscribers.remove(channel, eventChan) {
			_ = b.dropSubscription(channel, b.subscriptions[channel])
		}
	}()

	return eventChan, nil
}

// receive decodes messages from one Redis subscription until it closes
func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	logger := observability.GetLogger()
	defer func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.subscriptions[channel] != pubsub {
			return
		}
		b.subscribers.closeChannel(channel)
		if err := b.dropSubscription(channel, pubsub); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Msg("Failed to close subscription")
		}
	}()

	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.RosterEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal roster event")
				continue
			}
			b.subscribers.deliver(b.ctx, channel, &event)
		}
	}
}

// dropSubscription closes pubsub if it is still the live subscription for
// channel. Callers hold b.mu.
func (b *RedisEventBus) dropSubscription(channel string, pubsub *redis.PubSub) error {
	if pubsub == nil || b.subscriptions[channel] != pubsub {
		return nil
	}
	delete(b.subscriptions, channel)
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	return nil
}

// Unsubscribe closes every local subscription to channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers.closeChannel(channel)
	return b.dropSubscription(channel, b.subscriptions[channel])
}

// Close stops every subscription, reporting all close failures together
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers.close()
	var result error
	for channel, pubsub := range b.subscriptions {
		if err := b.dropSubscription(channel, pubsub); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
