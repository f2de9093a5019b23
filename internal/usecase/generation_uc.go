// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/domain/ports/adapter"
	"ai-learning-backend/internal/infra/cache"
	"ai-learning-backend/internal/infra/logging"
	"ai-learning-backend/internal/infra/metrics"
	"ai-learning-backend/internal/infra/ratelimit"
	"ai-learning-backend/internal/infra/retry"
)

// Generation parameters per resource type.
const (
	quizTemperature      = 0.7
	quizMaxTokens        = 4000
	flashcardTemperature = 0.7
	flashcardMaxTokens   = 3000
	tutorTemperature     = 0.8
	tutorMaxTokens       = 2000

	defaultQuizQuestions = 5
	maxQuizQuestions     = 20
	defaultFlashcards    = 10
	maxFlashcards        = 50

	defaultGrade         = "9-10"
	defaultLearningStyle = "visual"
	defaultDifficulty    = "intermediate"
)

// RateLimiter is the request-frequency gate. Allow consumes one slot,
// Status reads the window without consuming.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
	Status(ctx context.Context, userID string) (ratelimit.Status, error)
}

// ContentCache stores sanitized generation results keyed by request
// parameters.
type ContentCache interface {
	Get(k cache.Key) (any, bool)
	Set(k cache.Key, data any)
}

type QuizRequest struct {
	Subject       string `json:"subject"`
	Grade         string `json:"grade"`
	Difficulty    string `json:"difficulty"`
	NumQuestions  int    `json:"num_questions"`
	LearningStyle string `json:"learning_style"`
}

type FlashcardRequest struct {
	Subject       string `json:"subject"`
	Grade         string `json:"grade"`
	Difficulty    string `json:"difficulty"`
	NumCards      int    `json:"num_cards"`
	LearningStyle string `json:"learning_style"`
}

type TutorRequest struct {
	Question      string `json:"question"`
	Grade         string `json:"grade"`
	LearningStyle string `json:"learning_style"`
}

type QuizResult struct {
	Questions []model.QuizQuestion `json:"questions"`
	Cached    bool                 `json:"cached"`
	Usage     model.UsageStatus    `json:"usage"`
}

type FlashcardResult struct {
	Flashcards []model.Flashcard `json:"flashcards"`
	Cached     bool              `json:"cached"`
	Usage      model.UsageStatus `json:"usage"`
}

type TutorResult struct {
	Reply string            `json:"reply"`
	Usage model.UsageStatus `json:"usage"`
}

// GenerationUseCase runs the full admission and generation pipeline:
// quota gate, rate limiter, content cache, retried backend call, shape
// validation, sanitization, guarded usage increment and metric record.
// A cache hit short-circuits before the backend and does not consume quota.
type GenerationUseCase struct {
	usage     *UsageUseCase
	limiter   RateLimiter
	cache     ContentCache
	recorder  *metrics.Recorder
	generator adapter.TextGenerator
	retryCfg  retry.Config
	log       *zerolog.Logger

	encoder *tiktoken.Tiktoken
	now     func() time.Time
}

func NewGenerationUseCase(
	usage *UsageUseCase,
	limiter RateLimiter,
	contentCache ContentCache,
	recorder *metrics.Recorder,
	generator adapter.TextGenerator,
	retryCfg retry.Config,
	logger *zerolog.Logger,
) *GenerationUseCase {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn().Err(err).Msg("token encoder unavailable, prompt token metrics disabled")
		enc = nil
	}
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.DefaultConfig()
	}
	return &GenerationUseCase{
		usage:     usage,
		limiter:   limiter,
		cache:     contentCache,
		recorder:  recorder,
		generator: generator,
		retryCfg:  retryCfg,
		log:       logger,
		encoder:   enc,
		now:       time.Now,
	}
}

func (uc *GenerationUseCase) GenerateQuiz(ctx context.Context, userID string, req QuizRequest) (*QuizResult, error) {
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "GenerationUC.GenerateQuiz")()
	start := uc.now()

	if err := uc.normalizeQuiz(&req); err != nil {
		return nil, err
	}

	st, err := uc.admit(ctx, userID, model.UsageQuiz)
	if err != nil {
		uc.recordFailure(userID, model.UsageQuiz, start, err, req.Subject, req.Difficulty, req.NumQuestions)
		return nil, err
	}

	key := cache.Key{
		Type:       string(model.UsageQuiz),
		Subject:    req.Subject,
		Grade:      req.Grade,
		Difficulty: req.Difficulty,
		Count:      req.NumQuestions,
	}
	if v, ok := uc.cache.Get(key); ok {
		if questions, ok := v.([]model.QuizQuestion); ok {
			log.Debug().Str("cache_key", key.String()).Msg("serving quiz from cache")
			uc.recordSuccess(userID, model.UsageQuiz, start, req.Subject, req.Difficulty, req.NumQuestions)
			return &QuizResult{Questions: questions, Cached: true, Usage: st}, nil
		}
	}

	prompt := buildQuizPrompt(req)
	payload, err := uc.generateJSON(ctx, prompt, quizTemperature, quizMaxTokens)
	if err != nil {
		uc.recordFailure(userID, model.UsageQuiz, start, err, req.Subject, req.Difficulty, req.NumQuestions)
		return nil, err
	}
	if !model.ValidateQuizPayload(payload) {
		err := fmt.Errorf("%w: quiz payload failed type guard", domain.ErrInvalidResponseFormat)
		uc.recordFailure(userID, model.UsageQuiz, start, err, req.Subject, req.Difficulty, req.NumQuestions)
		return nil, err
	}

	questions := model.SanitizeQuiz(model.QuizFromPayload(payload))
	uc.cache.Set(key, questions)

	usage := uc.consume(ctx, userID, model.UsageQuiz, st)
	uc.recordSuccess(userID, model.UsageQuiz, start, req.Subject, req.Difficulty, req.NumQuestions)
	return &QuizResult{Questions: questions, Usage: usage}, nil
}

func (uc *GenerationUseCase) GenerateFlashcards(ctx context.Context, userID string, req FlashcardRequest) (*FlashcardResult, error) {
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "GenerationUC.GenerateFlashcards")()
	start := uc.now()

	if err := uc.normalizeFlashcards(&req); err != nil {
		return nil, err
	}

	st, err := uc.admit(ctx, userID, model.UsageFlashcard)
	if err != nil {
		uc.recordFailure(userID, model.UsageFlashcard, start, err, req.Subject, req.Difficulty, req.NumCards)
		return nil, err
	}

	key := cache.Key{
		Type:       string(model.UsageFlashcard),
		Subject:    req.Subject,
		Grade:      req.Grade,
		Difficulty: req.Difficulty,
		Count:      req.NumCards,
	}
	if v, ok := uc.cache.Get(key); ok {
		if cards, ok := v.([]model.Flashcard); ok {
			log.Debug().Str("cache_key", key.String()).Msg("serving flashcards from cache")
			uc.recordSuccess(userID, model.UsageFlashcard, start, req.Subject, req.Difficulty, req.NumCards)
			return &FlashcardResult{Flashcards: cards, Cached: true, Usage: st}, nil
		}
	}

	prompt := buildFlashcardPrompt(req)
	payload, err := uc.generateJSON(ctx, prompt, flashcardTemperature, flashcardMaxTokens)
	if err != nil {
		uc.recordFailure(userID, model.UsageFlashcard, start, err, req.Subject, req.Difficulty, req.NumCards)
		return nil, err
	}
	if !model.ValidateFlashcardPayload(payload) {
		err := fmt.Errorf("%w: flashcard payload failed type guard", domain.ErrInvalidResponseFormat)
		uc.recordFailure(userID, model.UsageFlashcard, start, err, req.Subject, req.Difficulty, req.NumCards)
		return nil, err
	}

	cards := model.SanitizeFlashcards(model.FlashcardsFromPayload(payload))
	uc.cache.Set(key, cards)

	usage := uc.consume(ctx, userID, model.UsageFlashcard, st)
	uc.recordSuccess(userID, model.UsageFlashcard, start, req.Subject, req.Difficulty, req.NumCards)
	return &FlashcardResult{Flashcards: cards, Usage: usage}, nil
}

// TutorMessage answers a free-form question. Tutor replies are personal to
// the conversation, so they are never cached; the quota and rate gates still
// apply.
func (uc *GenerationUseCase) TutorMessage(ctx context.Context, userID string, req TutorRequest) (*TutorResult, error) {
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "GenerationUC.TutorMessage")()
	start := uc.now()

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}
	if req.Grade == "" {
		req.Grade = defaultGrade
	}
	if req.LearningStyle == "" {
		req.LearningStyle = defaultLearningStyle
	}

	st, err := uc.admit(ctx, userID, model.UsageTutor)
	if err != nil {
		uc.recordFailure(userID, model.UsageTutor, start, err, "", "", 0)
		return nil, err
	}

	prompt := buildTutorPrompt(req)
	reply, err := uc.generateText(ctx, prompt, tutorTemperature, tutorMaxTokens)
	if err != nil {
		uc.recordFailure(userID, model.UsageTutor, start, err, "", "", 0)
		return nil, err
	}

	usage := uc.consume(ctx, userID, model.UsageTutor, st)
	uc.recordSuccess(userID, model.UsageTutor, start, "", "", 0)
	return &TutorResult{Reply: reply, Usage: usage}, nil
}

// RateLimitStatus reads the caller's current window without consuming a slot.
func (uc *GenerationUseCase) RateLimitStatus(ctx context.Context, userID string) (ratelimit.Status, error) {
	s, err := uc.limiter.Status(ctx, userID)
	if err != nil {
		return ratelimit.Status{}, &domain.DependencyError{Op: "rate limit status", Err: err}
	}
	return s, nil
}

// admit runs the quota gate and the rate limiter, in that order. Blocks are
// typed errors; infrastructure failures deny the request (fail closed).
func (uc *GenerationUseCase) admit(ctx context.Context, userID string, t model.UsageType) (model.UsageStatus, error) {
	st, err := uc.usage.CheckLimit(ctx, userID, t)
	if err != nil {
		return model.UsageStatus{}, err
	}
	if !st.Allowed {
		metrics.IncQuotaBlock(string(t))
		return model.UsageStatus{}, &domain.QuotaExceededError{
			Resource: string(t),
			Used:     st.Used,
			Limit:    st.Limit,
			Plan:     string(st.PlanType),
		}
	}

	ok, err := uc.limiter.Allow(ctx, userID)
	if err != nil {
		return model.UsageStatus{}, &domain.DependencyError{Op: "rate limit", Err: err}
	}
	if !ok {
		metrics.IncRateLimitBlock(string(t))
		status, serr := uc.limiter.Status(ctx, userID)
		if serr != nil {
			logging.With(ctx, uc.log).Warn().Err(serr).Msg("rate limit status lookup failed after block")
		}
		return model.UsageStatus{}, &domain.RateLimitedError{
			Remaining: status.Remaining,
			ResetTime: status.ResetTime,
		}
	}
	return st, nil
}

// generateJSON calls the backend under the retry schedule and decodes the
// response. A parse failure counts as a failed attempt so malformed output
// gets retried alongside transport errors.
func (uc *GenerationUseCase) generateJSON(ctx context.Context, prompt string, temp float32, maxTokens int) (any, error) {
	ctx = logging.WithRequestID(ctx, ulid.Make().String())
	uc.countPromptTokens(prompt)

	payload, err := retry.Do(ctx, uc.retryCfg, func() (any, error) {
		text, err := uc.generator.GenerateText(ctx, adapter.GenerateParams{
			Prompt:      prompt,
			Temperature: temp,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal([]byte(stripCodeFence(text)), &decoded); err != nil {
			return nil, fmt.Errorf("decode generator output: %w", err)
		}
		return decoded, nil
	})
	if err != nil {
		return nil, &domain.DependencyError{Op: "content generation", Err: err}
	}
	return payload, nil
}

// generateText is the plain-text variant used by the tutor.
func (uc *GenerationUseCase) generateText(ctx context.Context, prompt string, temp float32, maxTokens int) (string, error) {
	ctx = logging.WithRequestID(ctx, ulid.Make().String())
	uc.countPromptTokens(prompt)

	text, err := retry.Do(ctx, uc.retryCfg, func() (string, error) {
		return uc.generator.GenerateText(ctx, adapter.GenerateParams{
			Prompt:      prompt,
			Temperature: temp,
			MaxTokens:   maxTokens,
		})
	})
	if err != nil {
		return "", &domain.DependencyError{Op: "content generation", Err: err}
	}
	return text, nil
}

// consume increments usage after a successful generation and returns the
// updated status. The content is already produced at this point, so an
// increment failure is logged and the response still goes out.
func (uc *GenerationUseCase) consume(ctx context.Context, userID string, t model.UsageType, fallback model.UsageStatus) model.UsageStatus {
	log := logging.With(ctx, uc.log)
	ok, err := uc.usage.IncrementUsage(ctx, userID, t)
	if err != nil {
		log.Warn().Err(err).Str("type", string(t)).Msg("usage increment failed after generation")
		return fallback
	}
	if !ok {
		log.Warn().Str("type", string(t)).Msg("usage counter already at limit during increment")
	}
	updated, err := uc.usage.CheckLimit(ctx, userID, t)
	if err != nil {
		log.Warn().Err(err).Msg("usage re-check failed after increment")
		return fallback
	}
	return updated
}

func (uc *GenerationUseCase) countPromptTokens(prompt string) {
	if uc.encoder == nil {
		return
	}
	n := len(uc.encoder.Encode(prompt, nil, nil))
	metrics.AddPromptTokens(uc.generator.Name(), n)
}

func (uc *GenerationUseCase) normalizeQuiz(req *QuizRequest) error {
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		return fmt.Errorf("%w: subject is required", domain.ErrInvalidArgument)
	}
	if req.Grade == "" {
		req.Grade = defaultGrade
	}
	if req.Difficulty == "" {
		req.Difficulty = defaultDifficulty
	}
	if !validDifficulty(req.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidArgument, req.Difficulty)
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = defaultQuizQuestions
	}
	if req.NumQuestions > maxQuizQuestions {
		req.NumQuestions = maxQuizQuestions
	}
	return nil
}

func (uc *GenerationUseCase) normalizeFlashcards(req *FlashcardRequest) error {
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		return fmt.Errorf("%w: subject is required", domain.ErrInvalidArgument)
	}
	if req.Grade == "" {
		req.Grade = defaultGrade
	}
	if req.Difficulty == "" {
		req.Difficulty = defaultDifficulty
	}
	if !validDifficulty(req.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidArgument, req.Difficulty)
	}
	if req.NumCards <= 0 {
		req.NumCards = defaultFlashcards
	}
	if req.NumCards > maxFlashcards {
		req.NumCards = maxFlashcards
	}
	return nil
}

func (uc *GenerationUseCase) recordSuccess(userID string, t model.UsageType, start time.Time, subject, difficulty string, count int) {
	dur := uc.now().Sub(start)
	uc.recorder.Record(metrics.RequestMetric{
		UserID:     userID,
		Type:       string(t),
		Timestamp:  start,
		Duration:   dur,
		Status:     "success",
		Subject:    subject,
		Difficulty: difficulty,
		Count:      count,
	})
	metrics.ObserveGeneration(string(t), int(dur.Milliseconds()), true)
}

func (uc *GenerationUseCase) recordFailure(userID string, t model.UsageType, start time.Time, cause error, subject, difficulty string, count int) {
	dur := uc.now().Sub(start)
	uc.recorder.Record(metrics.RequestMetric{
		UserID:     userID,
		Type:       string(t),
		Timestamp:  start,
		Duration:   dur,
		Status:     "error",
		Error:      cause.Error(),
		Subject:    subject,
		Difficulty: difficulty,
		Count:      count,
	})
	metrics.ObserveGeneration(string(t), int(dur.Milliseconds()), false)
}

// Metrics exposes the recorder for the metrics endpoint.
func (uc *GenerationUseCase) Metrics(userID string) []metrics.RequestMetric {
	return uc.recorder.Metrics(userID)
}

// MetricsStats exposes aggregate stats for the metrics endpoint.
func (uc *GenerationUseCase) MetricsStats(userID string) metrics.Stats {
	return uc.recorder.Stats(userID)
}
