package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Config controls the backoff schedule. With the defaults the delays before
// attempts 2 and 3 are 1s and 2s; no jitter is applied.
type Config struct {
	MaxAttempts       int
	Delay             time.Duration
	BackoffMultiplier float64
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 3, Delay: time.Second, BackoffMultiplier: 2}
}

// sleep is swappable so tests can observe the schedule without waiting.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to cfg.MaxAttempts times, sequentially, sleeping
// Delay * Multiplier^attempt between attempts. The last error is returned
// as-is after the final attempt, with no trailing delay.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		return zero, errors.New("retry: max attempts must be positive")
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt < cfg.MaxAttempts-1 {
			delay := time.Duration(float64(cfg.Delay) * math.Pow(cfg.BackoffMultiplier, float64(attempt)))
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}
	}
	return zero, lastErr
}
