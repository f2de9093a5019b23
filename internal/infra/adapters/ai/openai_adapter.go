package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ai-learning-backend/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter is the fallback generation backend using Chat Completions.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) GenerateText(ctx context.Context, p adapter.GenerateParams) (string, error) {
	if p.Prompt == "" {
		return "", errors.New("openai: empty prompt")
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(p.Prompt),
		},
		Temperature: openai.Float(float64(p.Temperature)),
		MaxTokens:   openai.Int(int64(p.MaxTokens)),
	})
	if err != nil {
		return "", err
	}

	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("openai: no choice content")
}
