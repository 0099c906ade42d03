package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "chartwatch/internal/errors"
)

// AnthropicProvider is the Claude adapter.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewAnthropic creates the Claude provider adapter.
func NewAnthropic(apiKey string, opts Options) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude: %w", apperrors.ErrMissingAPIKey)
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 || maxTokens > 1024 {
		// Claude vision responses stay within a tighter token budget.
		maxTokens = 1024
	}

	return &AnthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       opts.Model,
		temperature: float64(opts.Temperature),
		maxTokens:   maxTokens,
	}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "claude"
}

// AnalyzeCharts sends the screenshots as base64 image blocks followed by
// the prompt text, and returns the concatenated text response.
func (p *AnthropicProvider) AnalyzeCharts(ctx context.Context, req Request) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, img.Data))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	return p.complete(ctx, blocks...)
}

// Consolidate sends a text-only consolidation prompt.
func (p *AnthropicProvider) Consolidate(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, anthropic.NewTextBlock(prompt))
}

func (p *AnthropicProvider) complete(ctx context.Context, blocks ...anthropic.ContentBlockParamUnion) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(p.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	return callWithRetry(ctx, func() (string, error) {
		msg, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return "", apperrors.NewProviderError(p.Name(), "messages.new", err)
		}

		var out strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		if out.Len() == 0 {
			return "", apperrors.NewProviderError(p.Name(), "messages.new",
				fmt.Errorf("empty response"))
		}
		return out.String(), nil
	})
}
