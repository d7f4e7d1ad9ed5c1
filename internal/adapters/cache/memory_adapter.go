package cache

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryAdapter implements the CacheProvider interface in process memory.
// Expired entries are dropped lazily when read; there is no sweeper.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

// NewMemoryAdapter creates a new in-memory cache adapter. A nil clock uses
// the wall clock.
func NewMemoryAdapter(clk clock.Clock) providers.CacheProvider {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		clock:   clk,
	}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	now := a.clock.Now()

	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("key not found: %s", key))
	}
	if entry.expired(now) {
		a.mu.Lock()
		if current, ok := a.entries[key]; ok && current.expired(now) {
			delete(a.entries, key)
		}
		a.mu.Unlock()
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("key not found: %s", key))
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value in cache with expiration. Non-positive expiration keeps
// the entry until deleted.
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = a.clock.Now().Add(ttl)
	}

	a.mu.Lock()
	a.entries[key] = entry
	a.mu.Unlock()
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	delete(a.entries, key)
	a.mu.Unlock()
	return nil
}

// DeletePattern removes every key matching a glob pattern
func (a *MemoryAdapter) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid cache pattern %q", pattern))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(a.entries, key)
		}
	}
	return nil
}

// Exists checks if a live key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	now := a.clock.Now()

	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()

	return ok && !entry.expired(now), nil
}

// Len returns the number of stored entries, expired ones included
func (a *MemoryAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}
