package zerodha

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"watchlist-scanner/internal/types"
)

type fakeKite struct {
	margins     kiteconnect.AllMargins
	positions   kiteconnect.Positions
	holdings    kiteconnect.Holdings
	instruments kiteconnect.Instruments
	candles     []kiteconnect.HistoricalData
	err         error

	instrumentCalls int
	histToken       int
	histFrom        time.Time
	histTo          time.Time
	histInterval    string
	block           chan struct{}
}

func (f *fakeKite) GetUserMargins() (kiteconnect.AllMargins, error) {
	return f.margins, f.err
}

func (f *fakeKite) GetPositions() (kiteconnect.Positions, error) {
	return f.positions, f.err
}

func (f *fakeKite) GetHoldings() (kiteconnect.Holdings, error) {
	return f.holdings, f.err
}

func (f *fakeKite) GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error) {
	f.instrumentCalls++
	return f.instruments, f.err
}

func (f *fakeKite) GetHistoricalData(token int, interval string, from, to time.Time, continuous, oi bool) ([]kiteconnect.HistoricalData, error) {
	if f.block != nil {
		<-f.block
	}
	f.histToken, f.histInterval, f.histFrom, f.histTo = token, interval, from, to
	return f.candles, f.err
}

var fixedNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestZerodha(kc *fakeKite, p Params) *Zerodha {
	z := newZerodha(kc, p)
	z.now = func() time.Time { return fixedNow }
	return z
}

func TestAccountState(t *testing.T) {
	kc := &fakeKite{
		margins: kiteconnect.AllMargins{Equity: kiteconnect.Margins{
			Net:       250000,
			Available: kiteconnect.AvailableMargins{Cash: 90000, LiveBalance: 80000},
		}},
		holdings: kiteconnect.Holdings{
			{Tradingsymbol: "INFY", Quantity: 10},
			{Tradingsymbol: "TCS", Quantity: 0},
		},
		positions: kiteconnect.Positions{Net: []kiteconnect.Position{
			{Tradingsymbol: "INFY", Quantity: 5},
			{Tradingsymbol: "SBIN", Quantity: -3},
		}},
	}

	state, err := newTestZerodha(kc, Params{}).AccountState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250000.0, state.Equity)
	assert.Equal(t, 80000.0, state.BuyingPower)
	assert.Equal(t, 90000.0, state.Cash)
	assert.Equal(t, map[string]float64{"INFY": 15, "SBIN": -3}, state.Positions)
}

func TestPriceHistoryResolvesTokenOnce(t *testing.T) {
	day := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	kc := &fakeKite{
		instruments: kiteconnect.Instruments{
			{InstrumentToken: 408065, Tradingsymbol: "INFY", Exchange: "NSE"},
			{InstrumentToken: 1, Tradingsymbol: "INFY", Exchange: "BSE"},
		},
		candles: []kiteconnect.HistoricalData{
			{Date: models.Time{Time: day}, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1200},
		},
	}
	z := newTestZerodha(kc, Params{Exchange: "NSE"})

	bars, err := z.PriceHistory(context.Background(), "infy", 150)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, types.PriceBar{Ts: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1200}, bars[0])
	assert.Equal(t, 408065, kc.histToken)
	assert.Equal(t, "day", kc.histInterval)
	assert.Equal(t, fixedNow, kc.histTo)
	assert.Equal(t, fixedNow.AddDate(0, 0, -150), kc.histFrom)

	_, err = z.PriceHistory(context.Background(), "INFY", 150)
	require.NoError(t, err)
	assert.Equal(t, 1, kc.instrumentCalls)
}

func TestPriceHistoryUnknownSymbol(t *testing.T) {
	kc := &fakeKite{instruments: kiteconnect.Instruments{{InstrumentToken: 1, Tradingsymbol: "TCS", Exchange: "NSE"}}}
	_, err := newTestZerodha(kc, Params{}).PriceHistory(context.Background(), "NOPE", 150)
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
}

func TestConfiguredTokenSkipsInstrumentDump(t *testing.T) {
	kc := &fakeKite{}
	z := newTestZerodha(kc, Params{Tokens: map[string]int{"RELIANCE": 738561}})

	_, err := z.PriceHistory(context.Background(), "RELIANCE", 100)
	require.NoError(t, err)
	assert.Equal(t, 738561, kc.histToken)
	assert.Zero(t, kc.instrumentCalls)
}

func TestKiteErrorsMapToKinds(t *testing.T) {
	kc := &fakeKite{err: kiteconnect.Error{Code: 429, ErrorType: "NetworkException", Message: "Too many requests"}}
	_, err := newTestZerodha(kc, Params{}).AccountState(context.Background())
	assert.ErrorIs(t, err, types.ErrRateLimited)

	kc.err = kiteconnect.Error{Code: 403, ErrorType: "TokenException", Message: "Invalid session"}
	_, err = newTestZerodha(kc, Params{}).AccountState(context.Background())
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestPriceHistoryHonoursContext(t *testing.T) {
	kc := &fakeKite{block: make(chan struct{})}
	defer close(kc.block)
	z := newTestZerodha(kc, Params{Tokens: map[string]int{"TCS": 1}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := z.PriceHistory(ctx, "TCS", 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Params{APIKey: "key"})
	assert.ErrorIs(t, err, types.ErrConfig)

	z, err := New(Params{APIKey: "key", AccessToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, "NSE", z.exchange)
}
