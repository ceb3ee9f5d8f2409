package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

// ErrProviderUnavailable signals that no embedding/completion provider is
// configured. Generation endpoints refuse to start without one.
var ErrProviderUnavailable = errors.New("ai provider not configured")

// AIProvider is the embedding/completion capability consumed by the insight
// engine, the card synthesizer and the report composer. Calls are single
// attempt with a bounded timeout; failures propagate to the caller.
type AIProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIProvider implements AIProvider against the OpenAI API. Calls made
// without an API key fail with ErrProviderUnavailable.
type OpenAIProvider struct {
	client     *openai.Client
	apiKey     string
	model      string
	embedModel string
	timeout    time.Duration
}

func NewOpenAIProvider(cfg *config.Config) *OpenAIProvider {
	return &OpenAIProvider{
		client:     openai.NewClient(cfg.OpenAIAPIKey),
		apiKey:     cfg.OpenAIAPIKey,
		model:      cfg.OpenAIModel,
		embedModel: cfg.OpenAIEmbedModel,
		timeout:    cfg.OpenAITimeout,
	}
}

// Embed returns one fixed-length vector per input text, preserving input order.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if p.apiKey == "" {
		return nil, ErrProviderUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.embedModel),
	})
	if err != nil {
		logger.WithProvider("embedding", "").WithField("elapsed", time.Since(start).String()).Errorf("embedding request failed: %v", err)
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vec := make([]float64, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float64(v)
		}
		vectors[item.Index] = vec
	}
	return vectors, nil
}

// Complete sends one system+user chat exchange and returns the raw text.
// Responses are expected, not guaranteed, to be JSON.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if p.apiKey == "" {
		return "", ErrProviderUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		logger.WithProvider("completion", "").WithField("elapsed", time.Since(start).String()).Errorf("completion request failed: %v", err)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// stripCodeFence removes markdown code fences that models wrap around JSON.
func stripCodeFence(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	}
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	if strings.HasSuffix(clean, "```") {
		clean = strings.TrimSuffix(clean, "```")
	}
	return strings.TrimSpace(clean)
}
