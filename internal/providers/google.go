package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	apperrors "chartwatch/internal/errors"
)

// GoogleProvider is the Gemini adapter. It doubles as the consolidation
// model that merges the individual provider analyses.
type GoogleProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGoogle creates the Gemini provider adapter.
func NewGoogle(ctx context.Context, apiKey string, opts Options) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google: %w", apperrors.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	maxTokens := int32(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	return &GoogleProvider{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string {
	return "google"
}

// AnalyzeCharts sends the prompt and inline image parts and returns the
// response text.
func (p *GoogleProvider) AnalyzeCharts(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return "", fmt.Errorf("decoding image %s: %w", img.Path, err)
		}
		parts = append(parts, genai.NewPartFromBytes(raw, img.MIMEType))
	}

	return p.generate(ctx, parts)
}

// Consolidate sends a text-only consolidation prompt.
func (p *GoogleProvider) Consolidate(ctx context.Context, prompt string) (string, error) {
	return p.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)})
}

func (p *GoogleProvider) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}

	return callWithRetry(ctx, func() (string, error) {
		resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
		if err != nil {
			return "", apperrors.NewProviderError(p.Name(), "generate content", err)
		}
		text := resp.Text()
		if text == "" {
			return "", apperrors.NewProviderError(p.Name(), "generate content",
				fmt.Errorf("empty response"))
		}
		return text, nil
	})
}
