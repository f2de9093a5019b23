package memory

import (
	"context"
	"sync"
	"time"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/domain/ports/repository"
)

// Ensure compile-time conformance
var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo is the in-process store used in dev mode and tests.
// A single mutex serializes check-then-increment per process, which stands
// in for the atomic UPDATE the Postgres repo uses.
type SubscriptionRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.UserSubscription
}

func NewSubscriptionRepo() *SubscriptionRepo {
	return &SubscriptionRepo{byUser: map[string]*model.UserSubscription{}}
}

func (r *SubscriptionRepo) FindByUser(ctx context.Context, userID string) (*model.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *SubscriptionRepo) Create(ctx context.Context, s *model.UserSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[s.UserID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *s
	r.byUser[s.UserID] = &cp
	return nil
}

func (r *SubscriptionRepo) ResetUsage(ctx context.Context, userID string, resetDate time.Time) (*model.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	// Only move the reset date forward; a concurrent caller that already
	// reset leaves nothing to do.
	if resetDate.After(s.UsageResetDate) {
		s.QuizzesUsed = 0
		s.FlashcardsUsed = 0
		s.TutorMessagesUsed = 0
		s.UsageResetDate = resetDate
		s.UpdatedAt = time.Now()
	}
	cp := *s
	return &cp, nil
}

func (r *SubscriptionRepo) TryIncrementUsage(ctx context.Context, userID string, t model.UsageType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	if !ok {
		return false, domain.ErrNotFound
	}
	limit := s.Limit(t)
	if limit != model.Unlimited && s.Used(t) >= limit {
		return false, nil
	}
	switch t {
	case model.UsageQuiz:
		s.QuizzesUsed++
	case model.UsageFlashcard:
		s.FlashcardsUsed++
	default:
		s.TutorMessagesUsed++
	}
	s.UpdatedAt = time.Now()
	return true, nil
}

// Put overwrites a record directly; test helper.
func (r *SubscriptionRepo) Put(s *model.UserSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byUser[s.UserID] = &cp
}
