package narrative

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GenAIGenerator uses the Google Gen AI SDK against the Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

func NewGenAIGenerator(ctx context.Context, apiKey, model string, opts ...func(*genai.ClientConfig)) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini-sdk: %w: missing API key", ErrNotConfigured)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](Temperature),
		TopP:        genai.Ptr[float32](TopP),
		TopK:        genai.Ptr[float32](TopK),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %d %s", ErrBadStatus, apiErr.Code, apiErr.Message)
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return "", fmt.Errorf("%w: %d %s", ErrBadStatus, apiErrPtr.Code, apiErrPtr.Message)
		}
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrUnexpectedShape)
	}
	return resp.Text(), nil
}
