package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

// Source reads daily bars from the Yahoo Finance chart endpoint. It needs no
// credentials.
type Source struct {
	// suffix is appended to symbols, e.g. ".NS" for NSE listings.
	suffix string
	fetch  func(p *chart.Params) ([]*finance.ChartBar, error)
	now    func() time.Time
}

var _ interfaces.PriceSource = (*Source)(nil)

func New(suffix string) *Source {
	return &Source{suffix: suffix, fetch: fetchChart, now: time.Now}
}

func fetchChart(p *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(p)
	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// PriceHistory fetches daily bars for the last lookbackDays calendar days.
func (s *Source) PriceHistory(ctx context.Context, symbol string, lookbackDays int) ([]types.PriceBar, error) {
	end := s.now()
	start := end.AddDate(0, 0, -lookbackDays)
	params := &chart.Params{
		Symbol:   strings.ToUpper(symbol) + s.suffix,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	type result struct {
		bars []*finance.ChartBar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := s.fetch(params)
		done <- result{bars, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		if msg := strings.ToLower(r.err.Error()); strings.Contains(msg, "not found") || strings.Contains(msg, "no data") {
			return nil, fmt.Errorf("%w: yahoo chart %s: %v", types.ErrDataUnavailable, params.Symbol, r.err)
		}
		return nil, fmt.Errorf("%w: yahoo chart %s: %v", types.ErrTransient, params.Symbol, r.err)
	}

	out := make([]types.PriceBar, 0, len(r.bars))
	for _, b := range r.bars {
		if b == nil {
			continue
		}
		out = append(out, toPriceBar(b))
	}
	logger.Debug(ctx, "Yahoo chart fetched", "symbol", params.Symbol, "bars", len(out))
	return out, nil
}

func toPriceBar(b *finance.ChartBar) types.PriceBar {
	return types.PriceBar{
		Ts:     time.Unix(int64(b.Timestamp), 0).UTC(),
		Open:   b.Open.InexactFloat64(),
		High:   b.High.InexactFloat64(),
		Low:    b.Low.InexactFloat64(),
		Close:  b.Close.InexactFloat64(),
		Volume: float64(b.Volume),
	}
}
