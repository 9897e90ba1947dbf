package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/perbu/flatrag/internal/openaierr"
	"github.com/perbu/flatrag/pkg/minirag"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "Answer the question using only the provided context. " +
	"If the context does not contain the answer, say that you do not know."

// OpenAIConfig configures an OpenAIGenerator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // Optional, for OpenAI-compatible servers
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIGenerator answers with the chat completions API
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGenerator creates a chat-completion based generator
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", minirag.ErrModelUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends the prompt built from query and contexts and returns the
// trimmed first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, query string, contexts []string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(query, contexts)},
		},
	})
	if err != nil {
		if openaierr.ModelUnavailable(err) {
			return "", fmt.Errorf("%w: %w: %w", minirag.ErrGeneration, minirag.ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("%w: OpenAI API error: %w", minirag.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned from API", minirag.ErrGeneration)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
