//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/infra/cache"
	"ai-learning-backend/internal/infra/db/memory"
	"ai-learning-backend/internal/infra/metrics"
	"ai-learning-backend/internal/infra/retry"
	"ai-learning-backend/internal/usecase"
)

// fastRetry keeps the production schedule shape but runs in microseconds.
func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, Delay: time.Millisecond, BackoffMultiplier: 2}
}

type genFixture struct {
	repo      *memory.SubscriptionRepo
	usage     *usecase.UsageUseCase
	limiter   *fakeLimiter
	cache     *cache.ContentCache
	recorder  *metrics.Recorder
	generator *scriptGenerator
	uc        *usecase.GenerationUseCase
}

func newGenFixture(script ...scriptStep) *genFixture {
	f := &genFixture{
		repo:      memory.NewSubscriptionRepo(),
		limiter:   newOpenLimiter(),
		cache:     cache.New(time.Hour, 100),
		recorder:  metrics.NewRecorder(100),
		generator: &scriptGenerator{script: script},
	}
	f.usage = usecase.NewUsageUseCase(f.repo, newTestLogger())
	f.uc = usecase.NewGenerationUseCase(f.usage, f.limiter, f.cache, f.recorder, f.generator, fastRetry(), newTestLogger())
	return f
}

func quizReq() usecase.QuizRequest {
	return usecase.QuizRequest{Subject: "algebra", Grade: "9-10", Difficulty: "intermediate", NumQuestions: 5}
}

func TestGenerateQuiz_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})

	res, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cached {
		t.Error("first request must not be a cache hit")
	}
	if len(res.Questions) != 1 || res.Questions[0].CorrectAnswer != "B" {
		t.Errorf("questions = %+v", res.Questions)
	}
	if res.Usage.Used != 1 {
		t.Errorf("usage after generation = %d, want 1", res.Usage.Used)
	}

	sub, _ := f.usage.GetSubscription(ctx, "user-1")
	if sub.QuizzesUsed != 1 {
		t.Errorf("stored counter = %d, want 1", sub.QuizzesUsed)
	}

	ms := f.recorder.Metrics("user-1")
	if len(ms) != 1 || ms[0].Status != "success" {
		t.Errorf("recorded metrics = %+v, want one success", ms)
	}
}

func TestGenerateQuiz_QuotaExhausted(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})
	f.repo.Put(&model.UserSubscription{
		ID: "sub-1", UserID: "user-1", PlanType: model.PlanFree,
		QuizLimit: 5, FlashcardLimit: 5, TutorMessagesLimit: 20,
		QuizzesUsed:    5,
		UsageResetDate: time.Now().Add(time.Hour),
	})

	_, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	var quotaErr *domain.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want QuotaExceededError", err)
	}
	if quotaErr.Used != 5 || quotaErr.Limit != 5 || quotaErr.Plan != "free" {
		t.Errorf("quota error = %+v", quotaErr)
	}
	if f.generator.calls != 0 {
		t.Error("blocked request must never reach the generator")
	}
	if f.limiter.calls != 0 {
		t.Error("quota gate runs before the rate limiter")
	}
}

func TestGenerateQuiz_RateLimited(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})
	f.limiter.allow = false
	f.limiter.status.Remaining = 0

	_, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	var rateErr *domain.RateLimitedError
	if !errors.As(err, &rateErr) {
		t.Fatalf("err = %v, want RateLimitedError", err)
	}
	if rateErr.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", rateErr.Remaining)
	}
	if f.generator.calls != 0 {
		t.Error("rate-limited request must never reach the generator")
	}

	// The block consumes no quota.
	sub, _ := f.usage.GetSubscription(ctx, "user-1")
	if sub.QuizzesUsed != 0 {
		t.Errorf("counter = %d, want 0", sub.QuizzesUsed)
	}
}

func TestGenerateQuiz_CacheHitSkipsBackendAndQuota(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})

	if _, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq()); err != nil {
		t.Fatalf("first request: %v", err)
	}
	res, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if !res.Cached {
		t.Error("identical request must be served from cache")
	}
	if f.generator.calls != 1 {
		t.Errorf("generator calls = %d, want 1", f.generator.calls)
	}

	// Cache hits do not consume quota.
	sub, _ := f.usage.GetSubscription(ctx, "user-1")
	if sub.QuizzesUsed != 1 {
		t.Errorf("counter = %d, want 1 after a cached response", sub.QuizzesUsed)
	}

	// But they still count as successful requests.
	if ms := f.recorder.Metrics("user-1"); len(ms) != 2 {
		t.Errorf("recorded metrics = %d, want 2", len(ms))
	}
}

func TestGenerateQuiz_DifferentParamsMissCache(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})

	f.uc.GenerateQuiz(ctx, "user-1", quizReq())

	other := quizReq()
	other.Difficulty = "advanced"
	res, err := f.uc.GenerateQuiz(ctx, "user-1", other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cached {
		t.Error("different difficulty must bypass the cache")
	}
	if f.generator.calls != 2 {
		t.Errorf("generator calls = %d, want 2", f.generator.calls)
	}
}

func TestGenerateQuiz_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(
		scriptStep{err: errors.New("upstream timeout")},
		scriptStep{text: "not json at all"},
		scriptStep{text: validQuizJSON},
	)

	res, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.generator.calls != 3 {
		t.Errorf("generator calls = %d, want 3 (error, bad JSON, success)", f.generator.calls)
	}
	if len(res.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(res.Questions))
	}
}

func TestGenerateQuiz_AllAttemptsFail(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{err: errors.New("upstream down")})

	_, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	var depErr *domain.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("err = %v, want DependencyError", err)
	}
	if f.generator.calls != 3 {
		t.Errorf("generator calls = %d, want all 3 attempts", f.generator.calls)
	}

	// Failed generation consumes no quota.
	sub, _ := f.usage.GetSubscription(ctx, "user-1")
	if sub.QuizzesUsed != 0 {
		t.Errorf("counter = %d, want 0", sub.QuizzesUsed)
	}
	if ms := f.recorder.Metrics("user-1"); len(ms) != 1 || ms[0].Status != "error" {
		t.Errorf("recorded metrics = %+v, want one error", ms)
	}
}

func TestGenerateQuiz_InvalidShapeIsNotRetried(t *testing.T) {
	ctx := context.Background()
	// Valid JSON, wrong shape: parse succeeds so retry stops, validation fails.
	f := newGenFixture(scriptStep{text: `[{"id":1,"question":"Q?"}]`})

	_, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	if !errors.Is(err, domain.ErrInvalidResponseFormat) {
		t.Fatalf("err = %v, want ErrInvalidResponseFormat", err)
	}
	if f.generator.calls != 1 {
		t.Errorf("generator calls = %d, want 1", f.generator.calls)
	}
	sub, _ := f.usage.GetSubscription(ctx, "user-1")
	if sub.QuizzesUsed != 0 {
		t.Error("rejected content must not consume quota")
	}
}

func TestGenerateQuiz_Validation(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})

	t.Run("empty subject rejected", func(t *testing.T) {
		req := quizReq()
		req.Subject = "  "
		if _, err := f.uc.GenerateQuiz(ctx, "user-1", req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("unknown difficulty rejected", func(t *testing.T) {
		req := quizReq()
		req.Difficulty = "impossible"
		if _, err := f.uc.GenerateQuiz(ctx, "user-1", req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("question count clamped", func(t *testing.T) {
		req := quizReq()
		req.NumQuestions = 500
		if _, err := f.uc.GenerateQuiz(ctx, "user-1", req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.generator.calls == 0 {
			t.Fatal("expected a generation")
		}
	})
}

func TestGenerateFlashcards_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validFlashcardJSON})

	res, err := f.uc.GenerateFlashcards(ctx, "user-1", usecase.FlashcardRequest{
		Subject: "biology", Grade: "9-10", Difficulty: "beginner", NumCards: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Flashcards) != 1 || res.Flashcards[0].Front != "Photosynthesis" {
		t.Errorf("flashcards = %+v", res.Flashcards)
	}

	sub, _ := f.usage.GetSubscription(ctx, "user-1")
	if sub.FlashcardsUsed != 1 || sub.QuizzesUsed != 0 {
		t.Errorf("counters = quiz %d / flashcard %d, want 0/1", sub.QuizzesUsed, sub.FlashcardsUsed)
	}
}

func TestTutorMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path increments the tutor counter", func(t *testing.T) {
		f := newGenFixture(scriptStep{text: "A quadratic equation has degree two."})

		res, err := f.uc.TutorMessage(ctx, "user-1", usecase.TutorRequest{Question: "What is a quadratic equation?"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Reply == "" {
			t.Error("expected a reply")
		}
		sub, _ := f.usage.GetSubscription(ctx, "user-1")
		if sub.TutorMessagesUsed != 1 {
			t.Errorf("tutor counter = %d, want 1", sub.TutorMessagesUsed)
		}
	})

	t.Run("empty question rejected", func(t *testing.T) {
		f := newGenFixture(scriptStep{text: "reply"})
		_, err := f.uc.TutorMessage(ctx, "user-1", usecase.TutorRequest{Question: "   "})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("identical questions are never cached", func(t *testing.T) {
		f := newGenFixture(scriptStep{text: "reply"})
		req := usecase.TutorRequest{Question: "Why is the sky blue?"}
		f.uc.TutorMessage(ctx, "user-1", req)
		f.uc.TutorMessage(ctx, "user-1", req)
		if f.generator.calls != 2 {
			t.Errorf("generator calls = %d, want 2", f.generator.calls)
		}
	})
}

func TestGeneration_DependencyFailureDenies(t *testing.T) {
	ctx := context.Background()
	f := newGenFixture(scriptStep{text: validQuizJSON})
	f.limiter.allow = false
	f.limiter.allowErr = errors.New("redis: connection refused")

	_, err := f.uc.GenerateQuiz(ctx, "user-1", quizReq())
	var depErr *domain.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("err = %v, want DependencyError (fail closed)", err)
	}
	if f.generator.calls != 0 {
		t.Error("failed admission must not generate")
	}
}
