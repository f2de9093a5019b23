//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/infra/db/memory"
	"ai-learning-backend/internal/usecase"
)

func TestUsageUseCase_GetSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions a free subscription on first contact", func(t *testing.T) {
		repo := memory.NewSubscriptionRepo()
		uc := usecase.NewUsageUseCase(repo, newTestLogger())

		sub, err := uc.GetSubscription(ctx, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sub.PlanType != model.PlanFree {
			t.Errorf("plan = %s, want free", sub.PlanType)
		}
		if sub.QuizLimit != 5 {
			t.Errorf("quiz limit = %d, want 5", sub.QuizLimit)
		}

		// Second call returns the same record, not a new one.
		again, err := uc.GetSubscription(ctx, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.ID != sub.ID {
			t.Error("second lookup must return the provisioned record")
		}
	})

	t.Run("rejects an empty user id", func(t *testing.T) {
		uc := usecase.NewUsageUseCase(memory.NewSubscriptionRepo(), newTestLogger())
		if _, err := uc.GetSubscription(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("resets counters once the reset date passes", func(t *testing.T) {
		repo := memory.NewSubscriptionRepo()
		uc := usecase.NewUsageUseCase(repo, newTestLogger())

		past := time.Now().Add(-time.Hour)
		repo.Put(&model.UserSubscription{
			ID: "sub-1", UserID: "user-1", PlanType: model.PlanFree,
			QuizLimit: 5, FlashcardLimit: 5, TutorMessagesLimit: 20,
			QuizzesUsed: 5, FlashcardsUsed: 3, TutorMessagesUsed: 10,
			UsageResetDate: past,
		})

		sub, err := uc.GetSubscription(ctx, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sub.QuizzesUsed != 0 || sub.FlashcardsUsed != 0 || sub.TutorMessagesUsed != 0 {
			t.Errorf("counters = %d/%d/%d, want all zero after reset",
				sub.QuizzesUsed, sub.FlashcardsUsed, sub.TutorMessagesUsed)
		}
		if !sub.UsageResetDate.After(time.Now()) {
			t.Error("reset date must move into the future")
		}
	})

	t.Run("repository failure surfaces as a dependency error", func(t *testing.T) {
		uc := usecase.NewUsageUseCase(&failingRepo{err: errors.New("connection refused")}, newTestLogger())

		_, err := uc.GetSubscription(ctx, "user-1")
		var depErr *domain.DependencyError
		if !errors.As(err, &depErr) {
			t.Errorf("err = %v, want DependencyError", err)
		}
	})
}

func TestUsageUseCase_IncrementUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("counter never passes its ceiling", func(t *testing.T) {
		repo := memory.NewSubscriptionRepo()
		uc := usecase.NewUsageUseCase(repo, newTestLogger())

		for i := 0; i < 5; i++ {
			ok, err := uc.IncrementUsage(ctx, "user-1", model.UsageQuiz)
			if err != nil || !ok {
				t.Fatalf("increment %d: got (%v,%v), want success", i+1, ok, err)
			}
		}

		ok, err := uc.IncrementUsage(ctx, "user-1", model.UsageQuiz)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("increment at the limit must be refused")
		}

		sub, _ := uc.GetSubscription(ctx, "user-1")
		if sub.QuizzesUsed != 5 {
			t.Errorf("used = %d, want exactly 5", sub.QuizzesUsed)
		}
	})

	t.Run("unlimited resources always increment", func(t *testing.T) {
		repo := memory.NewSubscriptionRepo()
		uc := usecase.NewUsageUseCase(repo, newTestLogger())
		repo.Put(&model.UserSubscription{
			ID: "sub-1", UserID: "user-1", PlanType: model.PlanEnterprise,
			QuizLimit: model.Unlimited, FlashcardLimit: model.Unlimited, TutorMessagesLimit: model.Unlimited,
			QuizzesUsed:    999,
			UsageResetDate: time.Now().Add(time.Hour),
		})

		ok, err := uc.IncrementUsage(ctx, "user-1", model.UsageQuiz)
		if err != nil || !ok {
			t.Errorf("got (%v,%v), want unlimited increment to succeed", ok, err)
		}
	})

	t.Run("independent counters per resource", func(t *testing.T) {
		repo := memory.NewSubscriptionRepo()
		uc := usecase.NewUsageUseCase(repo, newTestLogger())

		uc.IncrementUsage(ctx, "user-1", model.UsageQuiz)
		uc.IncrementUsage(ctx, "user-1", model.UsageTutor)

		sub, _ := uc.GetSubscription(ctx, "user-1")
		if sub.QuizzesUsed != 1 || sub.FlashcardsUsed != 0 || sub.TutorMessagesUsed != 1 {
			t.Errorf("counters = %d/%d/%d, want 1/0/1",
				sub.QuizzesUsed, sub.FlashcardsUsed, sub.TutorMessagesUsed)
		}
	})
}

func TestUsageUseCase_CheckLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks without mutating", func(t *testing.T) {
		repo := memory.NewSubscriptionRepo()
		uc := usecase.NewUsageUseCase(repo, newTestLogger())
		repo.Put(&model.UserSubscription{
			ID: "sub-1", UserID: "user-1", PlanType: model.PlanFree,
			QuizLimit: 5, FlashcardLimit: 5, TutorMessagesLimit: 20,
			QuizzesUsed:    5,
			UsageResetDate: time.Now().Add(time.Hour),
		})

		st, err := uc.CheckLimit(ctx, "user-1", model.UsageQuiz)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if st.Allowed {
			t.Error("exhausted quota must not be allowed")
		}
		if st.Used != 5 || st.Limit != 5 {
			t.Errorf("used/limit = %d/%d, want 5/5", st.Used, st.Limit)
		}
	})

	t.Run("fails closed on repository errors", func(t *testing.T) {
		uc := usecase.NewUsageUseCase(&failingRepo{err: errors.New("down")}, newTestLogger())
		if _, err := uc.CheckLimit(ctx, "user-1", model.UsageQuiz); err == nil {
			t.Error("expected error, got allow")
		}
	})
}

func TestUsageUseCase_GetUsageSummary(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSubscriptionRepo()
	uc := usecase.NewUsageUseCase(repo, newTestLogger())
	repo.Put(&model.UserSubscription{
		ID: "sub-1", UserID: "user-1", PlanType: model.PlanFree,
		QuizLimit: 5, FlashcardLimit: 5, TutorMessagesLimit: 20,
		QuizzesUsed: 2, TutorMessagesUsed: 20,
		UsageResetDate: time.Now().Add(10*24*time.Hour + time.Hour),
	})

	sum, err := uc.GetUsageSummary(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Quiz.Used != 2 || !sum.Quiz.Allowed {
		t.Errorf("quiz status = %+v", sum.Quiz)
	}
	if sum.Tutor.Allowed {
		t.Error("tutor must be blocked at 20/20")
	}
	if sum.DaysUntilReset != 11 {
		t.Errorf("days until reset = %d, want ceil to 11", sum.DaysUntilReset)
	}
}
