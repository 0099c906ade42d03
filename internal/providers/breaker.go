package providers

import (
	"context"

	apperrors "chartwatch/internal/errors"
	"chartwatch/internal/resilience"
)

// breakeredProvider wraps a provider with a circuit breaker so a
// provider that keeps failing gets skipped for a cooldown instead of
// stalling every pass on retries.
type breakeredProvider struct {
	provider Provider
	breaker  *resilience.CircuitBreaker
}

// WithBreaker wraps a provider with circuit breaker protection.
func WithBreaker(p Provider, cfg resilience.Config) Provider {
	return &breakeredProvider{
		provider: p,
		breaker:  resilience.NewCircuitBreaker(p.Name(), cfg),
	}
}

func (b *breakeredProvider) Name() string {
	return b.provider.Name()
}

func (b *breakeredProvider) AnalyzeCharts(ctx context.Context, req Request) (string, error) {
	result, err := resilience.ExecuteWithResult(b.breaker, ctx, func() (string, error) {
		return b.provider.AnalyzeCharts(ctx, req)
	})
	if err == resilience.ErrCircuitOpen {
		return "", apperrors.NewProviderError(b.provider.Name(), "analyze", err)
	}
	return result, err
}
