package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ai-learning-backend/internal/infra/ratelimit"
)

// RateLimiter is the shared fixed-window limiter for horizontally scaled
// deployments: the window lives in Redis (INCR + EXPIRE) so every instance
// sees the same counts. It satisfies the same contract as the in-process
// FixedWindowLimiter.
type RateLimiter struct {
	client RedisClient
	cfg    ratelimit.Config
}

func NewRateLimiter(client RedisClient, cfg ratelimit.Config) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = ratelimit.DefaultConfig().MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = ratelimit.DefaultConfig().Window
	}
	return &RateLimiter{client: client, cfg: cfg}
}

func (r *RateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := generateKey(userID)
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.cfg.Window); err != nil {
			return false, err
		}
	}

	if count > int64(r.cfg.MaxRequests) {
		return false, nil
	}
	return true, nil
}

func (r *RateLimiter) Status(ctx context.Context, userID string) (ratelimit.Status, error) {
	key := generateKey(userID)

	raw, err := r.client.Get(ctx, key)
	if err != nil {
		// Missing key means a fresh window.
		return ratelimit.Status{
			Remaining: r.cfg.MaxRequests,
			ResetTime: time.Now().Add(r.cfg.Window),
		}, nil
	}
	count, _ := strconv.Atoi(raw)

	ttl, err := r.client.TTL(ctx, key)
	if err != nil || ttl < 0 {
		ttl = r.cfg.Window
	}

	remaining := r.cfg.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Status{
		Remaining: remaining,
		ResetTime: time.Now().Add(ttl),
	}, nil
}

func generateKey(userID string) string {
	return fmt.Sprintf("rate_limit:%s:generate", userID)
}
