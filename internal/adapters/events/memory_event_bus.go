package events

import (
	"context"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
)

// MemoryEventBus is a process-local EventBus for single-instance deployments
type MemoryEventBus struct {
	subscribers *fanout
}

// NewMemoryEventBus creates a new in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{subscribers: newFanout()}
}

// Publish delivers an event to every current subscriber of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.RosterEvent) error {
	b.subscribers.deliver(ctx, channel, event)
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RosterEvent, error) {
	eventChan, _ := b.subscribers.add(channel)
	go func() {
		<-ctx.Done()
		b.subscribers.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// Unsubscribe closes every subscription to channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.subscribers.closeChannel(channel)
	return nil
}

// Close closes every subscription
func (b *MemoryEventBus) Close() error {
	b.subscribers.close()
	return nil
}
