package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
)

// Config controls how long backing-store connections are retried at startup
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration

	// Clock drives the backoff sleeps. Nil means the wall clock.
	Clock clock.Clock
}

// DefaultConfig gives up after ten attempts or one minute
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: time.Minute,
	}
}

func (c Config) next(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * c.BackoffFactor)
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// OnRetry is called after a failed attempt, before sleeping
type OnRetry func(attempt int, err error, nextDelay time.Duration)

// Do calls fn until it succeeds, the attempts run out or ctx is done.
// Only startup connections use it; request paths never retry.
func Do(ctx context.Context, cfg Config, name string, fn func(ctx context.Context) error, onRetry OnRetry) error {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return aborted(name, attempt-1, err, lastErr)
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if onRetry != nil {
			onRetry(attempt, lastErr, delay)
		}
		select {
		case <-ctx.Done():
			return aborted(name, attempt, ctx.Err(), lastErr)
		case <-clk.After(delay):
		}
		delay = cfg.next(delay)
	}

	return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", name, cfg.MaxAttempts, lastErr)
}

func aborted(name string, attempts int, cause, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%s: retry aborted: %w", name, cause)
	}
	return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", name, attempts, cause, lastErr)
}
