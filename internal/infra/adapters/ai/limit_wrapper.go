package ai

import (
	"context"

	"ai-learning-backend/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TextGenerator = (*limitedGenerator)(nil)

type limitedGenerator struct {
	inner adapter.TextGenerator
	sem   chan struct{}
}

// NewLimitedGenerator bounds concurrent calls to the backend with a
// semaphore. maxConcurrent <= 0 disables the wrapper.
func NewLimitedGenerator(inner adapter.TextGenerator, maxConcurrent int) adapter.TextGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGenerator{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGenerator) Name() string { return l.inner.Name() }

func (l *limitedGenerator) GenerateText(ctx context.Context, p adapter.GenerateParams) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.GenerateText(ctx, p)
}
