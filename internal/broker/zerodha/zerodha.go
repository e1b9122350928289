package zerodha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"watchlist-scanner/internal/api"
	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
	Timeout     time.Duration
	// Tokens overrides instrument-dump lookups for specific symbols.
	Tokens map[string]int
}

// Zerodha reads account state and daily candles from Kite Connect.
type Zerodha struct {
	kc       kiteAPI
	exchange string
	mapper   *instrumentMapper
	loadMu   sync.Mutex
	now      func() time.Time
}

var (
	_ interfaces.PriceSource   = (*Zerodha)(nil)
	_ interfaces.AccountSource = (*Zerodha)(nil)
)

func newZerodha(kc kiteAPI, p Params) *Zerodha {
	exchange := p.Exchange
	if exchange == "" {
		exchange = "NSE"
	}
	z := &Zerodha{kc: kc, exchange: exchange, mapper: newInstrumentMapper(), now: time.Now}
	for sym, tok := range p.Tokens {
		z.mapper.addMapping(sym, tok)
	}
	return z
}

// AccountState combines equity margins with net positions and holdings.
func (z *Zerodha) AccountState(ctx context.Context) (types.AccountState, error) {
	margins, err := call(ctx, z.kc.GetUserMargins)
	if err != nil {
		return types.AccountState{}, fmt.Errorf("kite margins: %w", err)
	}
	positions, err := call(ctx, z.kc.GetPositions)
	if err != nil {
		return types.AccountState{}, fmt.Errorf("kite positions: %w", err)
	}
	holdings, err := call(ctx, z.kc.GetHoldings)
	if err != nil {
		return types.AccountState{}, fmt.Errorf("kite holdings: %w", err)
	}

	state := types.AccountState{
		Equity:      margins.Equity.Net,
		BuyingPower: margins.Equity.Available.LiveBalance,
		Cash:        margins.Equity.Available.Cash,
		Positions:   map[string]float64{},
	}
	for _, h := range holdings {
		if h.Quantity != 0 {
			state.Positions[h.Tradingsymbol] += float64(h.Quantity)
		}
	}
	for _, p := range positions.Net {
		if p.Quantity != 0 {
			state.Positions[p.Tradingsymbol] += float64(p.Quantity)
		}
	}

	logger.Debug(ctx, "Kite account fetched",
		"equity", state.Equity,
		"buying_power", state.BuyingPower,
		"positions", len(state.Positions),
	)
	return state, nil
}

// PriceHistory returns daily candles covering the last lookbackDays calendar days.
func (z *Zerodha) PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error) {
	token, err := z.token(ctx, symbol)
	if err != nil {
		return nil, err
	}

	to := z.now()
	from := to.AddDate(0, 0, -lookbackDays)
	candles, err := call(ctx, func() ([]kiteconnect.HistoricalData, error) {
		return z.kc.GetHistoricalData(token, "day", from, to, false, false)
	})
	if err != nil {
		return nil, fmt.Errorf("kite historical %s: %w", symbol, err)
	}

	bars := make([]types.PriceBar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, types.PriceBar{
			Ts:     c.Date.Time,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: float64(c.Volume),
		})
	}
	return bars, nil
}

// token resolves symbol, loading the exchange instrument dump on first miss.
func (z *Zerodha) token(ctx context.Context, symbol string) (int, error) {
	if tok, ok := z.mapper.getToken(symbol); ok {
		return tok, nil
	}

	z.loadMu.Lock()
	defer z.loadMu.Unlock()
	if !z.mapper.isLoaded() {
		instruments, err := call(ctx, func() (kiteconnect.Instruments, error) {
			return z.kc.GetInstrumentsByExchange(z.exchange)
		})
		if err != nil {
			return 0, fmt.Errorf("kite instruments %s: %w", z.exchange, err)
		}
		n := z.mapper.load(instruments, z.exchange)
		logger.Info(ctx, "Kite instruments loaded", "exchange", z.exchange, "count", n)
	}

	if tok, ok := z.mapper.getToken(symbol); ok {
		return tok, nil
	}
	return 0, fmt.Errorf("%w: no %s instrument for %s", types.ErrDataUnavailable, z.exchange, symbol)
}

// call runs a blocking Kite request and gives up when ctx is done. The
// request itself is bounded by the HTTP client timeout.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return zero, kiteError(r.err)
		}
		return r.v, nil
	}
}

// kiteError maps a Kite API error onto an error kind by its HTTP status.
func kiteError(err error) error {
	var ke kiteconnect.Error
	if errors.As(err, &ke) && ke.Code != 0 {
		return fmt.Errorf("%w: %s: %s", api.KindForStatus(ke.Code), ke.ErrorType, ke.Message)
	}
	return fmt.Errorf("%w: %w", types.ErrTransient, err)
}
