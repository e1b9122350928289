package indicator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/ta"
	"watchlist-scanner/internal/types"
)

// Engine converts price history into indicator snapshots.
type Engine struct {
	src interfaces.PriceSource
	cfg Settings
}

func NewEngine(src interfaces.PriceSource, cfg Settings) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{src: src, cfg: cfg}, nil
}

func (e *Engine) Settings() Settings {
	return e.cfg
}

// Outcome is the per-symbol result of a batch evaluation. Exactly one of
// Snapshot and Err is meaningful.
type Outcome struct {
	Symbol   string
	Snapshot types.IndicatorSnapshot
	Err      error
}

// Evaluate computes snapshots for every symbol concurrently. Failed symbols
// are logged and returned as outcomes with Err set; they never stop the batch.
// Outcomes keep the order of symbols.
func (e *Engine) Evaluate(ctx context.Context, symbols []string) []Outcome {
	out := make([]Outcome, len(symbols))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			snap, err := e.EvaluateSymbol(ctx, sym)
			if err != nil {
				logger.SymbolSkipped(ctx, sym, err, "stage", "indicators")
			}
			out[i] = Outcome{Symbol: sym, Snapshot: snap, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Snapshots is Evaluate without the failures.
func (e *Engine) Snapshots(ctx context.Context, symbols []string) []types.IndicatorSnapshot {
	var snaps []types.IndicatorSnapshot
	for _, o := range e.Evaluate(ctx, symbols) {
		if o.Err == nil {
			snaps = append(snaps, o.Snapshot)
		}
	}
	return snaps
}

// EvaluateSymbol fetches history for one symbol under the per-symbol timeout
// and computes its snapshot. Panics are converted to errors.
func (e *Engine) EvaluateSymbol(ctx context.Context, symbol string) (snap types.IndicatorSnapshot, err error) {
	op := logger.StartOperation(ctx, "indicator.EvaluateSymbol", "symbol", symbol)
	ctx = op.Context()
	defer func() {
		if err != nil {
			op.EndWithError(err)
			return
		}
		op.End("signal", string(snap.OverallSignal), "bullish_votes", snap.BullishVotes)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = types.NewSymbolError(symbol, types.ErrInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	if e.cfg.SymbolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SymbolTimeout)
		defer cancel()
	}

	bars, err := e.src.PriceHistory(ctx, symbol, e.cfg.LookbackDays)
	if err != nil {
		return types.IndicatorSnapshot{}, types.NewSymbolError(symbol, fetchKind(err), err)
	}
	return e.Compute(symbol, bars)
}

// fetchKind keeps the kind a price source reported. Timeouts are transient;
// an error carrying no kind means the source had nothing for the symbol.
func fetchKind(err error) error {
	if kind := types.KindFor(err); kind != nil {
		return kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.ErrTransient
	}
	return types.ErrDataUnavailable
}

// Compute builds the snapshot from bars. It fails with ErrDataUnavailable on
// an empty series and ErrInsufficientHistory when any indicator is undefined.
func (e *Engine) Compute(symbol string, bars []types.PriceBar) (types.IndicatorSnapshot, error) {
	bars = Normalize(bars)
	if len(bars) == 0 {
		return types.IndicatorSnapshot{}, types.NewSymbolError(symbol, types.ErrDataUnavailable, fmt.Errorf("no valid bars"))
	}
	if need := e.cfg.MinBars(); len(bars) < need {
		return types.IndicatorSnapshot{}, types.NewSymbolError(symbol, types.ErrInsufficientHistory,
			fmt.Errorf("have %d valid bars, need %d", len(bars), need))
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	c := e.cfg
	price := closes[len(closes)-1]
	rsi := ta.RSI(closes, c.RSIPeriod)
	roc := ta.ROC(closes, c.ROCPeriod)
	line, sig, hist := ta.MACD(closes, c.MACDFast, c.MACDSlow, c.MACDSignal)
	smaShort := ta.SMA(closes, c.SMAShort)
	smaLong := ta.SMA(closes, c.SMALong)
	vwap := ta.VWAP(closes, volumes, c.VWAPPeriod)

	values := map[string]float64{
		"rsi": rsi, "momentum": roc, "macd_line": line, "macd_signal": sig,
		"macd_histogram": hist, "sma_short": smaShort, "sma_long": smaLong, "vwap": vwap,
	}
	if !ta.Defined(rsi) && ta.Flat(closes) {
		return types.IndicatorSnapshot{}, types.NewSymbolError(symbol, types.ErrInsufficientHistory,
			fmt.Errorf("rsi undefined on flat series: all %d closes equal %g", len(closes), price))
	}
	for _, k := range sortedKeys(values) {
		if !ta.Defined(values[k]) {
			return types.IndicatorSnapshot{}, types.NewSymbolError(symbol, types.ErrInsufficientHistory,
				fmt.Errorf("%s undefined", k))
		}
	}

	snap := types.IndicatorSnapshot{
		Symbol:         symbol,
		AsOf:           bars[len(bars)-1].Ts,
		Price:          price,
		RSIValue:       rsi,
		RSISignal:      e.classifyRSI(rsi),
		MomentumPct:    roc,
		MomentumSignal: types.MomentumNegative,
		MACDLine:       line,
		MACDSignalLine: sig,
		MACDHistogram:  hist,
		MACDCrossover:  types.CrossoverBearish,
		SMA20:          smaShort,
		SMA50:          smaLong,
		PriceVsSMA20:   relation(price, smaShort),
		PriceVsSMA50:   relation(price, smaLong),
		VWAP20:         vwap,
		PriceVsVWAP:    relation(price, vwap),
	}
	if roc > 0 {
		snap.MomentumSignal = types.MomentumPositive
	}
	if line > sig {
		snap.MACDCrossover = types.CrossoverBullish
	}

	ballots := Ballots(snap, c.Enabled)
	snap.OverallSignal, snap.BullishVotes, snap.BearishVotes = Tally(ballots, c.VoteFraction)
	snap.TotalVotes = len(ballots)
	return snap, nil
}

func (e *Engine) classifyRSI(v float64) types.RSISignal {
	switch {
	case v < e.cfg.RSIOversold:
		return types.RSIOversold
	case v > e.cfg.RSIOverbought:
		return types.RSIOverbought
	default:
		return types.RSINeutral
	}
}

func relation(price, ref float64) types.Relation {
	if price > ref {
		return types.Above
	}
	return types.Below
}

// Normalize sorts bars by time, keeps the last bar for a repeated timestamp
// and drops bars with a non-finite or non-positive close or negative volume.
func Normalize(bars []types.PriceBar) []types.PriceBar {
	valid := make([]types.PriceBar, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			continue
		}
		if math.IsNaN(b.Volume) || b.Volume < 0 {
			continue
		}
		valid = append(valid, b)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Ts.Before(valid[j].Ts) })

	out := valid[:0]
	for _, b := range valid {
		if n := len(out); n > 0 && out[n-1].Ts.Equal(b.Ts) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
