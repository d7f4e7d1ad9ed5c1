package events

import (
	"context"
	"sync"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

// subscriberBuffer is the per-subscriber channel capacity
const subscriberBuffer = 100

// fanout tracks the local subscribers of each channel and copies every
// delivered event to all of them. A subscriber whose buffer is full misses
// the event rather than stalling the others.
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.RosterEvent]struct{}
	closed      bool
}

func newFanout() *fanout {
	return &fanout{subscribers: make(map[string]map[chan *entities.RosterEvent]struct{})}
}

// add registers a subscriber on channel. first is true when it is the only
// one. After close the returned channel is already closed.
func (f *fanout) add(channel string) (ch chan *entities.RosterEvent, first bool) {
	ch = make(chan *entities.RosterEvent, subscriberBuffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, false
	}
	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.RosterEvent]struct{})
	}
	f.subscribers[channel][ch] = struct{}{}
	return ch, len(f.subscribers[channel]) == 1
}

// remove closes one subscriber. last is true when channel has none left.
func (f *fanout) remove(channel string, ch chan *entities.RosterEvent) (last bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subscribers[channel][ch]; !ok {
		return false
	}
	delete(f.subscribers[channel], ch)
	close(ch)
	if len(f.subscribers[channel]) == 0 {
		delete(f.subscribers, channel)
		return true
	}
	return false
}

func (f *fanout) count(channel string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[channel])
}

func (f *fanout) deliver(ctx context.Context, channel string, event *entities.RosterEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for subscriber := range f.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			observability.LoggerFromContext(ctx).Warn().
				Str("channel", channel).
				Str("event_id", event.ID).
				Msg("Subscriber channel full, skipping event")
		}
	}
}

// closeChannel closes every subscriber of channel
func (f *fanout) closeChannel(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for subscriber := range f.subscribers[channel] {
		close(subscriber)
	}
	delete(f.subscribers, channel)
}

// close closes every subscriber. Later adds get closed channels.
func (f *fanout) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for channel, subscribers := range f.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(f.subscribers, channel)
	}
	f.closed = true
}
