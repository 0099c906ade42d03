package providers

import (
	"context"

	"github.com/rs/zerolog"

	"chartwatch/internal/config"
	"chartwatch/internal/resilience"
	"chartwatch/internal/security"
)

// Registry holds the enabled provider adapters for one session.
type Registry struct {
	providers    []Provider
	consolidator Consolidator
}

// NewRegistry builds the enabled providers from configuration. A
// provider enabled without an API key is skipped with a warning rather
// than failing the whole session.
func NewRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *Registry {
	opts := func(pc config.ProviderConfig) Options {
		return Options{
			Model:       pc.Model,
			Temperature: cfg.Providers.Temperature,
			MaxTokens:   cfg.Providers.MaxTokens,
		}
	}

	reg := &Registry{}

	add := func(name, key string, p Provider, err error) {
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).
				Msg("Provider enabled but unavailable, skipping")
			return
		}
		logger.Debug().Str("provider", name).
			Str("key", security.MaskCredential(key)).
			Msg("Provider initialized")
		if name == cfg.Providers.ConsolidationProvider {
			if c, ok := p.(Consolidator); ok {
				reg.consolidator = c
			}
		}
		reg.providers = append(reg.providers, WithBreaker(p, resilience.DefaultConfig()))
	}

	if cfg.Providers.Anthropic.Enabled {
		p, err := NewAnthropic(cfg.Credentials.Anthropic.APIKey, opts(cfg.Providers.Anthropic))
		add("claude", cfg.Credentials.Anthropic.APIKey, p, err)
	}
	if cfg.Providers.Perplexity.Enabled {
		p, err := NewPerplexity(cfg.Credentials.Perplexity.APIKey, opts(cfg.Providers.Perplexity))
		add("perplexity", cfg.Credentials.Perplexity.APIKey, p, err)
	}
	if cfg.Providers.Google.Enabled {
		p, err := NewGoogle(ctx, cfg.Credentials.Google.APIKey, opts(cfg.Providers.Google))
		add("google", cfg.Credentials.Google.APIKey, p, err)
	}
	if cfg.Providers.OpenAI.Enabled {
		p, err := NewOpenAI(cfg.Credentials.OpenAI.APIKey, opts(cfg.Providers.OpenAI))
		add("openai", cfg.Credentials.OpenAI.APIKey, p, err)
	}
	if cfg.Providers.Grok.Enabled {
		p, err := NewGrok(cfg.Credentials.Grok.APIKey, opts(cfg.Providers.Grok))
		add("grok", cfg.Credentials.Grok.APIKey, p, err)
	}

	return reg
}

// Providers returns the enabled providers in registration order.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// Consolidator returns the consolidation model, or nil when none is
// configured and available.
func (r *Registry) Consolidator() Consolidator {
	return r.consolidator
}

// Names returns the enabled provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}
