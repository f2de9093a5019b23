package repository

import (
	"context"
	"time"

	"ai-learning-backend/internal/domain/model"
)

// SubscriptionRepository persists per-user quota records.
//
// TryIncrementUsage must perform the check-and-increment as one atomic step
// against the store so that concurrent requests for the same user cannot
// push a counter past its ceiling.
type SubscriptionRepository interface {
	// FindByUser returns domain.ErrNotFound when no record exists.
	FindByUser(ctx context.Context, userID string) (*model.UserSubscription, error)

	// Create inserts a new record; domain.ErrAlreadyExists on conflict.
	Create(ctx context.Context, sub *model.UserSubscription) error

	// ResetUsage zeroes all counters and sets the given reset date, guarded
	// so that only one of several concurrent callers performs the reset.
	// Returns the record as stored afterwards.
	ResetUsage(ctx context.Context, userID string, resetDate time.Time) (*model.UserSubscription, error)

	// TryIncrementUsage adds exactly 1 to the counter for t when it is
	// under its limit (or the limit is unlimited). Returns false without
	// mutation when the ceiling is reached.
	TryIncrementUsage(ctx context.Context, userID string, t model.UsageType) (bool, error)
}
