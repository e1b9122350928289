package brokerobs

import (
	"context"
	"errors"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/trace"
	"watchlist-scanner/internal/types"
)

// observablePrices wraps a PriceSource with observability (logging & tracing)
type observablePrices struct {
	name string
	src  interfaces.PriceSource
}

// observableAccount wraps an AccountSource with observability
type observableAccount struct {
	name string
	src  interfaces.AccountSource
}

// Compile-time interface checks
var (
	_ interfaces.PriceSource   = (*observablePrices)(nil)
	_ interfaces.AccountSource = (*observableAccount)(nil)
)

// WrapPrices wraps a price source with observability middleware
func WrapPrices(name string, src interfaces.PriceSource) interfaces.PriceSource {
	return &observablePrices{name: name, src: src}
}

// WrapAccount wraps an account source with observability middleware
func WrapAccount(name string, src interfaces.AccountSource) interfaces.AccountSource {
	return &observableAccount{name: name, src: src}
}

// PriceHistory fetches bars with observability
func (ob *observablePrices) PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "broker.PriceHistory", symbol, trace.Source(ob.name))
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching price history", "source", ob.name, "symbol", symbol, "lookback_days", lookbackDays)

	bars, err := ob.src.PriceHistory(ctx, symbol, lookbackDays)
	if errors.Is(err, types.ErrRateLimited) {
		logger.WarnSkip(ctx, 1, "Price history rate limited", "source", ob.name, "symbol", symbol, "error", err.Error())
		return nil, err
	}
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch price history", err,
			"source", ob.name,
			"symbol", symbol,
			"kind", types.KindOf(err),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Price history fetched successfully", "source", ob.name, "symbol", symbol, "count", len(bars))
	return bars, nil
}

// AccountState fetches the account snapshot with observability
func (ob *observableAccount) AccountState(ctx context.Context) (types.AccountState, error) {
	ctx, span := trace.StartSpanWith(ctx, "broker.AccountState", trace.Source(ob.name))
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching account state", "source", ob.name)

	state, err := ob.src.AccountState(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account state", err, "source", ob.name)
		return types.AccountState{}, err
	}

	logger.InfoSkip(ctx, 1, "Account state fetched",
		"source", ob.name,
		"equity", state.Equity,
		"buying_power", state.BuyingPower,
		"positions", len(state.Positions),
	)
	return state, nil
}
