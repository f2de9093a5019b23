// File: internal/usecase/usage_uc.go
package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/domain/ports/repository"
	"ai-learning-backend/internal/infra/logging"
)

// UsageUseCase owns the quota lifecycle: lazy provisioning of the free
// record, monthly resets, admission checks and guarded increments. Any
// repository failure is surfaced as a DependencyError so callers deny the
// request instead of treating the user as unlimited.
type UsageUseCase struct {
	repo repository.SubscriptionRepository
	log  *zerolog.Logger

	now func() time.Time
}

func NewUsageUseCase(repo repository.SubscriptionRepository, logger *zerolog.Logger) *UsageUseCase {
	return &UsageUseCase{repo: repo, log: logger, now: time.Now}
}

// GetSubscription returns the user's current quota record, creating the
// default free record on first contact and applying the monthly reset when
// the stored reset date has passed.
func (uc *UsageUseCase) GetSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(ctx, uc.log)

	sub, err := uc.repo.FindByUser(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		sub, err = uc.provision(ctx, userID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, &domain.DependencyError{Op: "subscription lookup", Err: err}
	}

	now := uc.now()
	if sub.NeedsReset(now) {
		reset, err := uc.repo.ResetUsage(ctx, userID, now.Add(model.ResetInterval))
		if err != nil {
			return nil, &domain.DependencyError{Op: "usage reset", Err: err}
		}
		log.Info().Str("user_id", userID).Time("next_reset", reset.UsageResetDate).Msg("usage counters reset")
		sub = reset
	}
	return sub, nil
}

// provision creates the default free subscription. A concurrent creator
// winning the race is fine; we read back whichever record landed.
func (uc *UsageUseCase) provision(ctx context.Context, userID string) (*model.UserSubscription, error) {
	sub, err := model.NewFreeSubscription(uuid.NewString(), userID, uc.now())
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			existing, ferr := uc.repo.FindByUser(ctx, userID)
			if ferr != nil {
				return nil, &domain.DependencyError{Op: "subscription lookup", Err: ferr}
			}
			return existing, nil
		}
		return nil, &domain.DependencyError{Op: "subscription create", Err: err}
	}
	logging.With(ctx, uc.log).Info().Str("user_id", userID).Msg("provisioned free subscription")
	return sub, nil
}

// CheckLimit computes the admission decision for one resource type without
// consuming anything.
func (uc *UsageUseCase) CheckLimit(ctx context.Context, userID string, t model.UsageType) (model.UsageStatus, error) {
	sub, err := uc.GetSubscription(ctx, userID)
	if err != nil {
		return model.UsageStatus{}, err
	}
	return sub.StatusFor(t), nil
}

// IncrementUsage consumes one unit of the resource if the ceiling allows it.
// The repository performs the check and the increment atomically; a false
// return means the counter was already at its limit and nothing changed.
func (uc *UsageUseCase) IncrementUsage(ctx context.Context, userID string, t model.UsageType) (bool, error) {
	// Ensures the record exists and the monthly reset has been applied
	// before the guarded increment runs.
	if _, err := uc.GetSubscription(ctx, userID); err != nil {
		return false, err
	}
	ok, err := uc.repo.TryIncrementUsage(ctx, userID, t)
	if err != nil {
		return false, &domain.DependencyError{Op: "usage increment", Err: err}
	}
	return ok, nil
}

// GetUsageSummary aggregates all three resources for the usage endpoint.
func (uc *UsageUseCase) GetUsageSummary(ctx context.Context, userID string) (*model.UsageSummary, error) {
	sub, err := uc.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	days := int(math.Ceil(sub.UsageResetDate.Sub(uc.now()).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &model.UsageSummary{
		Quiz:           sub.StatusFor(model.UsageQuiz),
		Flashcard:      sub.StatusFor(model.UsageFlashcard),
		Tutor:          sub.StatusFor(model.UsageTutor),
		Subscription:   sub,
		DaysUntilReset: days,
	}, nil
}
