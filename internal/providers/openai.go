package providers

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "chartwatch/internal/errors"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"
	grokBaseURL       = "https://api.x.ai/v1"
)

// OpenAICompatible is a provider adapter for any OpenAI-compatible chat
// completions API with vision support. OpenAI itself, Perplexity, and
// Grok all speak this protocol.
type OpenAICompatible struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// Options configures a provider adapter.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

func newOpenAICompatible(name, apiKey, baseURL string, opts Options) (*OpenAICompatible, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", name, apperrors.ErrMissingAPIKey)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	return &OpenAICompatible{
		name:        name,
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// NewOpenAI creates the OpenAI provider adapter.
func NewOpenAI(apiKey string, opts Options) (*OpenAICompatible, error) {
	return newOpenAICompatible("openai", apiKey, "", opts)
}

// NewPerplexity creates the Perplexity provider adapter.
func NewPerplexity(apiKey string, opts Options) (*OpenAICompatible, error) {
	return newOpenAICompatible("perplexity", apiKey, perplexityBaseURL, opts)
}

// NewGrok creates the Grok (x.ai) provider adapter.
func NewGrok(apiKey string, opts Options) (*OpenAICompatible, error) {
	return newOpenAICompatible("grok", apiKey, grokBaseURL, opts)
}

// Name returns the provider name.
func (p *OpenAICompatible) Name() string {
	return p.name
}

// AnalyzeCharts sends the prompt and screenshots as a single vision
// message and returns the raw response text.
func (p *OpenAICompatible) AnalyzeCharts(ctx context.Context, req Request) (string, error) {
	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: req.Prompt,
		},
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img.DataURI(),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	return p.complete(ctx, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
}

// Consolidate sends a text-only consolidation prompt.
func (p *OpenAICompatible) Consolidate(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (p *OpenAICompatible) complete(ctx context.Context, msg openai.ChatCompletionMessage) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: p.temperature,
	}

	// Newer OpenAI models reject max_tokens in favor of
	// max_completion_tokens.
	if strings.HasPrefix(strings.ToLower(p.model), "gpt-5") {
		chatReq.MaxCompletionTokens = p.maxTokens
	} else {
		chatReq.MaxTokens = p.maxTokens
	}

	return callWithRetry(ctx, func() (string, error) {
		resp, err := p.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return "", apperrors.NewProviderError(p.name, "chat completion", err)
		}
		if len(resp.Choices) == 0 {
			return "", apperrors.NewProviderError(p.name, "chat completion",
				fmt.Errorf("empty response"))
		}
		return resp.Choices[0].Message.Content, nil
	})
}
