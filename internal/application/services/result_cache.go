package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/providers"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

const (
	searchCachePrefix = "doctor-search:"
	matchCachePrefix  = "patient-match:"
)

// ResultCache memoizes engine results as JSON in a CacheProvider.
// Concurrent misses for the same key run the computation once.
type ResultCache struct {
	provider providers.CacheProvider
	metrics  *observability.Metrics
	group    singleflight.Group
}

// NewResultCache creates a result cache over provider. metrics may be nil.
func NewResultCache(provider providers.CacheProvider, metrics *observability.Metrics) *ResultCache {
	return &ResultCache{
		provider: provider,
		metrics:  metrics,
	}
}

// Clear drops every memoized search and match result
func (c *ResultCache) Clear(ctx context.Context) error {
	for _, prefix := range []string{searchCachePrefix, matchCachePrefix} {
		if err := c.provider.DeletePattern(ctx, prefix+"*"); err != nil {
			return fmt.Errorf("failed to clear %s results: %w", prefix, err)
		}
	}
	return nil
}

// cached returns the memoized result for keyParts, or runs compute and
// stores its result for ttl. Cache failures never fail the request.
func cached[T any](ctx context.Context, c *ResultCache, prefix string, keyParts any, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	logger := observability.LoggerFromContext(ctx)

	key, err := cacheKey(prefix, keyParts)
	if err != nil {
		logger.Warn().Err(err).Str("prefix", prefix).Msg("Failed to build cache key")
		return compute(ctx)
	}

	if data, err := c.provider.Get(ctx, key); err == nil && data != nil {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			c.metrics.RecordCacheHit(ctx, prefix)
			logger.Debug().Str("key", key).Msg("Cache hit")
			return out, nil
		}
		logger.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	}
	c.metrics.RecordCacheMiss(ctx, prefix)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(result)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to encode result for cache")
			return result, nil
		}
		if err := c.provider.Set(ctx, key, data, ttl); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to store result in cache")
		}
		return result, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func cacheKey(prefix string, parts any) (string, error) {
	raw, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return prefix + hex.EncodeToString(sum[:]), nil
}
