package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config bounds per-user request frequency. Fixed-window on purpose: it is
// a secondary guard behind the quota gate, not the billing mechanism, so
// burst-at-boundary behavior is acceptable.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRequests: 20, Window: time.Hour}
}

// Status is a read-only projection of a user's current window.
type Status struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

type window struct {
	count     int
	resetTime time.Time
}

// FixedWindowLimiter is a process-local fixed-window limiter. Windows reset
// silently once their reset time passes; Sweep drops stale entries so the
// map stays bounded in long-lived processes.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     Config

	now func() time.Time
}

func NewFixedWindowLimiter(cfg Config) *FixedWindowLimiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	return &FixedWindowLimiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Allow consumes one request slot for userID. On the first request, or once
// the previous window has elapsed, a fresh window starts with count=1.
// A full window returns false without mutation.
func (l *FixedWindowLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.After(w.resetTime) {
		l.windows[userID] = &window{count: 1, resetTime: now.Add(l.cfg.Window)}
		return true, nil
	}
	if w.count >= l.cfg.MaxRequests {
		return false, nil
	}
	w.count++
	return true, nil
}

// Status reports the remaining slots without consuming one.
func (l *FixedWindowLimiter) Status(ctx context.Context, userID string) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.After(w.resetTime) {
		return Status{Remaining: l.cfg.MaxRequests, ResetTime: now.Add(l.cfg.Window)}, nil
	}
	remaining := l.cfg.MaxRequests - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Status{Remaining: remaining, ResetTime: w.resetTime}, nil
}

// Sweep removes windows whose reset time has passed; returns the count.
func (l *FixedWindowLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, w := range l.windows {
		if now.After(w.resetTime) {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}
