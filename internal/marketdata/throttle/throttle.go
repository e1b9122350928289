// Package throttle limits the request rate to an upstream price source.
package throttle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

// Source waits for a token before every upstream call. Broker history APIs
// enforce per-second quotas (Kite allows 3 historical requests a second) that
// a parallel indicator phase would otherwise exceed.
type Source struct {
	src     interfaces.PriceSource
	limiter *rate.Limiter
}

var _ interfaces.PriceSource = (*Source)(nil)

// New allows perMinute requests with bursts of up to burst. A non-positive
// perMinute returns src unchanged.
func New(src interfaces.PriceSource, perMinute, burst int) interfaces.PriceSource {
	if perMinute <= 0 {
		return src
	}
	if burst <= 0 {
		burst = 1
	}
	return &Source{
		src:     src,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

func (s *Source) PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error) {
	if s.limiter.Tokens() < 1 {
		logger.Debug(ctx, "Waiting for price source rate limit", "symbol", symbol)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: waiting for rate limit: %w", types.ErrRateLimited, symbol, err)
	}
	return s.src.PriceHistory(ctx, symbol, lookbackDays)
}
