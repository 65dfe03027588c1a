package narrative

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const chatMaxTokens = 1024

type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ChatGenerator sends the prompt as a single user message to an eino chat model.
type ChatGenerator struct {
	model chatModel
}

// NewOpenAIGenerator targets any OpenAI-compatible endpoint.
func NewOpenAIGenerator(ctx context.Context, apiKey, baseURL, modelName string) (*ChatGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w: missing API key", ErrNotConfigured)
	}
	maxTokens := chatMaxTokens
	temperature := float32(Temperature)
	topP := float32(TopP)
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       modelName,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &ChatGenerator{model: cm}, nil
}

func NewDeepSeekGenerator(ctx context.Context, apiKey, modelName string) (*ChatGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek: %w: missing API key", ErrNotConfigured)
	}
	cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:      apiKey,
		Model:       modelName,
		MaxTokens:   chatMaxTokens,
		Temperature: Temperature,
		TopP:        TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("create deepseek chat model: %w", err)
	}
	return &ChatGenerator{model: cm}, nil
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty message", ErrUnexpectedShape)
	}
	return msg.Content, nil
}
