//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ai-learning-backend/internal/domain/model"
	"ai-learning-backend/internal/domain/ports/adapter"
	"ai-learning-backend/internal/infra/ratelimit"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// scriptGenerator returns queued responses in order; an entry with a non-nil
// err fails that attempt. The last entry repeats once the queue is drained.
type scriptGenerator struct {
	script []scriptStep
	calls  int
}

type scriptStep struct {
	text string
	err  error
}

func (g *scriptGenerator) Name() string { return "script" }

func (g *scriptGenerator) GenerateText(ctx context.Context, p adapter.GenerateParams) (string, error) {
	i := g.calls
	if i >= len(g.script) {
		i = len(g.script) - 1
	}
	g.calls++
	if i < 0 {
		return "", errors.New("script is empty")
	}
	step := g.script[i]
	return step.text, step.err
}

var _ adapter.TextGenerator = (*scriptGenerator)(nil)

// fakeLimiter is a scriptable rate limiter gate.
type fakeLimiter struct {
	allow    bool
	allowErr error
	status   ratelimit.Status
	calls    int
}

func newOpenLimiter() *fakeLimiter {
	return &fakeLimiter{allow: true, status: ratelimit.Status{Remaining: 20, ResetTime: time.Now().Add(time.Hour)}}
}

func (f *fakeLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	f.calls++
	return f.allow, f.allowErr
}

func (f *fakeLimiter) Status(ctx context.Context, userID string) (ratelimit.Status, error) {
	return f.status, nil
}

// failingRepo simulates a persistence outage.
type failingRepo struct{ err error }

func (r *failingRepo) FindByUser(ctx context.Context, userID string) (*model.UserSubscription, error) {
	return nil, r.err
}
func (r *failingRepo) Create(ctx context.Context, s *model.UserSubscription) error { return r.err }
func (r *failingRepo) ResetUsage(ctx context.Context, userID string, resetDate time.Time) (*model.UserSubscription, error) {
	return nil, r.err
}
func (r *failingRepo) TryIncrementUsage(ctx context.Context, userID string, t model.UsageType) (bool, error) {
	return false, r.err
}

const validQuizJSON = `[{"id":1,"question":"What is 2+2?","options":["A) 3","B) 4","C) 5","D) 6"],"correctAnswer":"B","explanation":"Basic addition."}]`

const validFlashcardJSON = `[{"id":1,"front":"Photosynthesis","back":"The process plants use to convert light into energy."}]`
