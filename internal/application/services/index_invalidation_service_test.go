package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctordirectory/backend/internal/adapters/events"
	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/application/services"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
)

func TestIndexInvalidationService_HandleEvent(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeIsolated)
	idx.Build(sampleDoctors())
	cache := newFakeCache()
	cache.data["doctor-search:abc"] = []byte(`[]`)
	cache.data["patient-match:def"] = []byte(`[]`)
	cache.data["unrelated"] = []byte(`1`)

	svc := services.NewIndexInvalidationService(idx, services.NewResultCache(cache, nil), events.NewMemoryEventBus())
	svc.HandleEvent(entities.NewRosterEvent("doc1", entities.RosterEventDoctorUpdated))

	assert.True(t, idx.IsStale())
	assert.True(t, idx.NeedsBuild())
	assert.Equal(t, 1, cache.len())
	assert.ElementsMatch(t, []string{"doctor-search:*", "patient-match:*"}, cache.patterns)
}

func TestIndexInvalidationService_ReactsToPublishedEvents(t *testing.T) {
	idx := index.NewDoctorIndex(index.ModeMerged)
	idx.Build(sampleDoctors())
	cache := newFakeCache()
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	svc := services.NewIndexInvalidationService(idx, services.NewResultCache(cache, nil), bus)
	require.NoError(t, svc.Start())

	require.NoError(t, svc.NotifyRosterChange(context.Background(), "doc2", entities.RosterEventAvailabilityChanged))

	assert.Eventually(t, idx.IsStale, time.Second, 10*time.Millisecond)
	svc.Stop()

	// Rebuilding clears the stale flag
	idx.Build(sampleDoctors())
	assert.False(t, idx.IsStale())
}
