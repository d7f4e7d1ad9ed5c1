package providers

import (
	"context"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to roster events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RosterEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RosterEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelRosterUpdates is the channel for all doctor roster changes
	EventChannelRosterUpdates = "doctor:roster"
)
