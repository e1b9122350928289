package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"watchlist-scanner/internal/api"
	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

const (
	DefaultBaseURL = "https://paper-api.alpaca.markets"
	DefaultDataURL = "https://data.alpaca.markets"

	maxPages = 20
)

type Params struct {
	APIKey    string
	APISecret string
	BaseURL   string
	DataURL   string
	// Feed is the market data feed, "iex" or "sip".
	Feed    string
	Timeout time.Duration
}

// Alpaca reads the trading account and daily bars from the Alpaca REST APIs.
type Alpaca struct {
	trading *api.Client
	data    *api.Client
	feed    string
	now     func() time.Time
}

var (
	_ interfaces.PriceSource   = (*Alpaca)(nil)
	_ interfaces.AccountSource = (*Alpaca)(nil)
)

// New builds the adapter. Missing credentials are a configuration error.
func New(p Params) (*Alpaca, error) {
	if p.APIKey == "" || p.APISecret == "" {
		return nil, fmt.Errorf("%w: alpaca requires ALPACA_API_KEY and ALPACA_API_SECRET", types.ErrConfig)
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.DataURL == "" {
		p.DataURL = DefaultDataURL
	}
	if p.Feed == "" {
		p.Feed = "iex"
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}

	opts := []api.ClientOption{
		api.WithTimeout(p.Timeout),
		api.WithHeader("APCA-API-KEY-ID", p.APIKey),
		api.WithHeader("APCA-API-SECRET-KEY", p.APISecret),
		api.WithRetry(2, 500*time.Millisecond, 5*time.Second),
		api.WithLogging(true),
	}
	return &Alpaca{
		trading: api.NewClient(append(opts, api.WithBaseURL(p.BaseURL))...),
		data:    api.NewClient(append(opts, api.WithBaseURL(p.DataURL))...),
		feed:    p.Feed,
		now:     time.Now,
	}, nil
}

type account struct {
	Equity      decimal.Decimal `json:"equity"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	Cash        decimal.Decimal `json:"cash"`
	Status      string          `json:"status"`
}

type position struct {
	Symbol string          `json:"symbol"`
	Qty    decimal.Decimal `json:"qty"`
}

type bar struct {
	T time.Time `json:"t"`
	O float64   `json:"o"`
	H float64   `json:"h"`
	L float64   `json:"l"`
	C float64   `json:"c"`
	V float64   `json:"v"`
}

type barsPage struct {
	Bars          []bar   `json:"bars"`
	Symbol        string  `json:"symbol"`
	NextPageToken *string `json:"next_page_token"`
}

// AccountState reads /v2/account and /v2/positions.
func (a *Alpaca) AccountState(ctx context.Context) (types.AccountState, error) {
	var acct account
	if err := a.trading.GetJSON(ctx, "/v2/account", nil, &acct); err != nil {
		return types.AccountState{}, fmt.Errorf("alpaca account: %w", err)
	}
	var positions []position
	if err := a.trading.GetJSON(ctx, "/v2/positions", nil, &positions); err != nil {
		return types.AccountState{}, fmt.Errorf("alpaca positions: %w", err)
	}

	state := types.AccountState{
		Equity:      acct.Equity.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
		Cash:        acct.Cash.InexactFloat64(),
		Positions:   make(map[string]float64, len(positions)),
	}
	for _, p := range positions {
		state.Positions[p.Symbol] = p.Qty.InexactFloat64()
	}

	logger.Debug(ctx, "Alpaca account fetched", "status", acct.Status, "positions", len(positions))
	return state, nil
}

// PriceHistory pages through split-adjusted daily bars for the last
// lookbackDays calendar days.
func (a *Alpaca) PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error) {
	end := a.now().UTC()
	query := map[string]string{
		"timeframe":  "1Day",
		"start":      end.AddDate(0, 0, -lookbackDays).Format(time.RFC3339),
		"end":        end.Format(time.RFC3339),
		"adjustment": "split",
		"feed":       a.feed,
		"limit":      "10000",
	}

	var out []types.PriceBar
	for page := 0; page < maxPages; page++ {
		var resp barsPage
		err := a.data.Do(ctx, api.Request{
			Method:     http.MethodGet,
			Path:       "/v2/stocks/{symbol}/bars",
			PathParams: map[string]string{"symbol": symbol},
			Query:      query,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
		}
		for _, b := range resp.Bars {
			out = append(out, types.PriceBar{Ts: b.T, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V})
		}
		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			return out, nil
		}
		query["page_token"] = *resp.NextPageToken
	}
	logger.Warn(ctx, "Alpaca bar paging stopped early", "symbol", symbol, "pages", maxPages, "bars", len(out))
	return out, nil
}
