package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

// IndexInvalidationService marks the doctor index stale and drops memoized
// results whenever the roster changes
type IndexInvalidationService struct {
	index    *index.DoctorIndex
	cache    *ResultCache
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewIndexInvalidationService creates a new index invalidation service
func NewIndexInvalidationService(idx *index.DoctorIndex, cache *ResultCache, eventBus providers.EventBus) *IndexInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &IndexInvalidationService{
		index:    idx,
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for roster events
func (s *IndexInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelRosterUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to roster updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	observability.GetLogger().Info().Str("channel", providers.EventChannelRosterUpdates).Msg("Index invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *IndexInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	observability.GetLogger().Info().Msg("Index invalidation service stopped")
}

// NotifyRosterChange publishes a roster event for other instances
func (s *IndexInvalidationService) NotifyRosterChange(ctx context.Context, doctorID string, eventType entities.RosterEventType) error {
	event := entities.NewRosterEvent(doctorID, eventType)
	if err := s.eventBus.Publish(ctx, providers.EventChannelRosterUpdates, event); err != nil {
		return fmt.Errorf("failed to publish roster event: %w", err)
	}
	return nil
}

func (s *IndexInvalidationService) processEvents(eventChan <-chan *entities.RosterEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.HandleEvent(event)
		}
	}
}

// HandleEvent applies a single roster event
func (s *IndexInvalidationService) HandleEvent(event *entities.RosterEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := observability.GetLogger()
	s.index.Invalidate()

	if err := s.cache.Clear(ctx); err != nil {
		logger.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to clear matching caches")
		return
	}

	logger.Info().
		Str("event_id", event.ID).
		Str("doctor_id", event.DoctorID).
		Str("event_type", string(event.EventType)).
		Msg("Doctor index invalidated")
}
