package enrich

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini is a Summarizer backed by the Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini returns a client for apiKey.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("enrich: gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Summarize runs one GenerateContent call.
func (g *Gemini) Summarize(ctx context.Context, req Request) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrNotConfigured
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.5)}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	result, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("enrich: gemini %s: %w", req.Model, err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", errors.New("enrich: gemini returned no candidates")
	}
	return result.Text(), nil
}
