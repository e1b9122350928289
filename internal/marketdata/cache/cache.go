package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

// Store persists bar series by key.
type Store interface {
	Get(ctx context.Context, key string) ([]types.PriceBar, bool, error)
	Set(ctx context.Context, key string, bars []types.PriceBar, ttl time.Duration) error
	Close() error
}

// Source is a PriceSource that serves repeated requests for the same symbol,
// lookback and calendar day from a Store. Concurrent misses for one key share
// a single upstream fetch. Store failures are logged and bypassed.
type Source struct {
	src   interfaces.PriceSource
	store Store
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

var _ interfaces.PriceSource = (*Source)(nil)

func New(src interfaces.PriceSource, store Store, ttl time.Duration) *Source {
	return &Source{src: src, store: store, ttl: ttl, now: time.Now}
}

func (s *Source) PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error) {
	key := fmt.Sprintf("bars:%s:%d:%s", symbol, lookbackDays, s.now().UTC().Format("2006-01-02"))

	bars, ok, err := s.store.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "Bar cache read failed", "symbol", symbol, "error", err)
	}
	if ok {
		logger.Debug(ctx, "Bar cache hit", "symbol", symbol, "bars", len(bars))
		return bars, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		fetched, err := s.src.PriceHistory(ctx, symbol, lookbackDays)
		if err != nil {
			return nil, err
		}
		// Empty series are not cached so a later pass can retry.
		if len(fetched) > 0 {
			if err := s.store.Set(ctx, key, fetched, s.ttl); err != nil {
				logger.Warn(ctx, "Bar cache write failed", "symbol", symbol, "error", err)
			}
		}
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]types.PriceBar(nil), v.([]types.PriceBar)...), nil
}

func (s *Source) Close() error {
	return s.store.Close()
}
