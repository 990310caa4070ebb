package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI is a Summarizer backed by the chat completions API.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI returns a client for apiKey. baseURL may be empty.
func NewOpenAI(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...)}, nil
}

// Summarize sends req as a single user message.
func (o *OpenAI) Summarize(ctx context.Context, req Request) (string, error) {
	if o == nil {
		return "", ErrNotConfigured
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(0.5),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("enrich: openai %s: %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("enrich: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
