package ai

import (
	"context"
	"strings"

	"ai-learning-backend/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*NoopAdapter)(nil)

// NoopAdapter serves dev mode and tests without a real provider. It returns
// well-formed placeholder content matching the shape the prompt asks for.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (n *NoopAdapter) Name() string { return "noop" }

func (n *NoopAdapter) GenerateText(ctx context.Context, p adapter.GenerateParams) (string, error) {
	switch {
	case strings.Contains(p.Prompt, "multiple-choice"):
		return `[{"id":1,"question":"Placeholder question?","options":["A) one","B) two","C) three","D) four"],"correctAnswer":"A","explanation":"Placeholder explanation."}]`, nil
	case strings.Contains(p.Prompt, "flashcard"):
		return `[{"id":1,"front":"Placeholder term","back":"Placeholder definition"}]`, nil
	default:
		return "This is a placeholder tutor reply.", nil
	}
}
