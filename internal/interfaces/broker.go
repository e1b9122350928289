package interfaces

import (
	"context"

	"watchlist-scanner/internal/types"
)

// PriceSource supplies a chronologically ordered daily series for a symbol.
// Failures wrap types.ErrDataUnavailable, types.ErrRateLimited or
// types.ErrTransient.
type PriceSource interface {
	PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error)
}

// AccountSource returns the live account and position state.
type AccountSource interface {
	AccountState(ctx context.Context) (types.AccountState, error)
}
