package adapter

import "context"

// GenerateParams shapes one text-generation call.
type GenerateParams struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// TextGenerator is the port to the hosted generation backend. Failures are
// either transport/API errors or a malformed-response error when the
// expected fields are absent; both are retryable by the caller.
type TextGenerator interface {
	// Name labels the provider for logs and metrics (e.g. "gemini").
	Name() string
	GenerateText(ctx context.Context, p GenerateParams) (string, error)
}
