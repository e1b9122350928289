package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"watchlist-scanner/internal/indicator"
	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/trace"
	"watchlist-scanner/internal/types"
)

// Metrics receives pass outcomes. *metrics.Recorder implements it.
type Metrics interface {
	SymbolSkipped(err error)
	ActionEmitted(a types.Action)
	DeliveryFailed()
	PassFinished(started, finished time.Time)
}

// Deps are the collaborators of a pass. Sink and Metrics are optional.
type Deps struct {
	Indicators   *indicator.Engine
	Decider      interfaces.Decider
	Account      interfaces.AccountSource
	Fundamentals interfaces.FundamentalSource
	Risks        interfaces.RiskSource
	Sink         interfaces.Sink
	Metrics      Metrics
}

type Options struct {
	// DryRun computes every Action but delivers none.
	DryRun bool
	// ReserveBuyingPower lowers the pass's running buying power by the
	// notional of each BUY and new short, so later symbols size against
	// what is left.
	ReserveBuyingPower bool
	// SignalConcurrency bounds parallel upstream signal lookups.
	SignalConcurrency int
}

// Engine coordinates one scan pass: a single account snapshot, a parallel
// indicator phase, then a sequential decision phase in watchlist order.
type Engine struct {
	deps  Deps
	opts  Options
	now   func() time.Time
	newID func() string
}

var _ interfaces.Scanner = (*Engine)(nil)

func newEngine(deps Deps, opts Options) (*Engine, error) {
	if deps.Indicators == nil || deps.Decider == nil || deps.Account == nil ||
		deps.Fundamentals == nil || deps.Risks == nil {
		return nil, fmt.Errorf("%w: scan engine is missing a collaborator", types.ErrConfig)
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if opts.SignalConcurrency <= 0 {
		opts.SignalConcurrency = 4
	}
	return &Engine{
		deps:  deps,
		opts:  opts,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// Scan runs one pass over watchlist. Only configuration errors and a failed
// account snapshot (ErrAccountUnavailable) abort the pass, and both happen
// before any symbol is processed. Every other failure is recorded per symbol.
func (e *Engine) Scan(ctx context.Context, watchlist []string) (*types.ScanReport, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Scan")
	defer span.End()

	symbols := normalizeWatchlist(watchlist)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: watchlist is empty", types.ErrConfig)
	}

	report := &types.ScanReport{RunID: e.newID(), StartedAt: e.now().UTC()}
	trace.Annotate(ctx, trace.RunID(report.RunID), trace.Symbols(len(symbols)))
	logger.Info(ctx, "Scan pass started", "run_id", report.RunID, "symbols", len(symbols), "dry_run", e.opts.DryRun)

	account, err := e.deps.Account.AccountState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrAccountUnavailable, err)
	}
	report.Account = account

	outcomes := e.deps.Indicators.Evaluate(ctx, symbols)
	signals := e.fetchSignals(ctx, outcomes)

	// The decision phase is the single point where the running buying power
	// changes, so it stays sequential.
	running := account
	for i, o := range outcomes {
		// Indicator failures were already logged by the indicator engine.
		if o.Err != nil {
			e.skip(report, o.Symbol, o.Err)
			continue
		}
		sig := signals[i]
		if sig.err != nil {
			logger.SymbolSkipped(ctx, o.Symbol, sig.err, "run_id", report.RunID, "stage", "signals")
			e.skip(report, o.Symbol, sig.err)
			continue
		}

		res, err := e.decide(ctx, o.Snapshot, sig, running, report.StartedAt)
		if err != nil {
			logger.SymbolSkipped(ctx, o.Symbol, err, "run_id", report.RunID, "stage", "decision")
			e.skip(report, o.Symbol, err)
			continue
		}
		if e.opts.ReserveBuyingPower {
			running.BuyingPower = reserve(running.BuyingPower, res.Action, o.Snapshot.Price)
		}
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = e.now().UTC()
	e.deps.Metrics.PassFinished(report.StartedAt, report.FinishedAt)
	logger.Info(ctx, "Scan pass finished",
		"run_id", report.RunID,
		"actions", len(report.Results),
		"skipped", len(report.Skipped),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

type upstream struct {
	fundamental types.Fundamental
	risk        types.NewsRisk
	err         error
}

// fetchSignals looks up the already-scored inputs for every symbol whose
// indicators succeeded. Results align with outcomes.
func (e *Engine) fetchSignals(ctx context.Context, outcomes []indicator.Outcome) []upstream {
	out := make([]upstream, len(outcomes))

	var g errgroup.Group
	g.SetLimit(e.opts.SignalConcurrency)
	for i, o := range outcomes {
		if o.Err != nil {
			continue
		}
		i, o := i, o
		g.Go(func() error {
			out[i] = e.fetchSignal(ctx, o.Symbol)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) fetchSignal(ctx context.Context, symbol string) upstream {
	f, err := e.deps.Fundamentals.FundamentalScore(ctx, symbol)
	if err != nil {
		return upstream{err: types.NewSymbolError(symbol, types.ErrUpstreamSignalMissing, err)}
	}
	r, err := e.deps.Risks.CriticalRisk(ctx, symbol)
	if err != nil {
		return upstream{err: types.NewSymbolError(symbol, types.ErrUpstreamSignalMissing, err)}
	}
	return upstream{fundamental: f, risk: r}
}

func (e *Engine) decide(ctx context.Context, snap types.IndicatorSnapshot, sig upstream, account types.AccountState, asOf time.Time) (types.SymbolResult, error) {
	ctx, span := trace.StartSymbolSpan(ctx, "engine.symbol", snap.Symbol)
	defer span.End()

	action, err := e.deps.Decider.Decide(types.DecisionInput{
		Symbol:      snap.Symbol,
		Snapshot:    snap,
		Fundamental: sig.fundamental,
		Risk:        sig.risk,
		Account:     account,
		AsOf:        asOf,
	})
	if err != nil {
		return types.SymbolResult{}, types.NewSymbolError(snap.Symbol, types.ErrInvalidInput, err)
	}

	trace.Annotate(ctx, trace.ActionAttrs(action)...)
	logger.Decision(ctx, action,
		"signal", snap.OverallSignal,
		"fundamental_score", sig.fundamental.Score,
		"critical_risk", sig.risk.Critical,
		"price", snap.Price,
	)
	e.deps.Metrics.ActionEmitted(action)

	res := types.SymbolResult{Symbol: snap.Symbol, Snapshot: snap, Action: action}
	if e.opts.DryRun || e.deps.Sink == nil {
		return res, nil
	}
	if err := e.deps.Sink.Deliver(ctx, action); err != nil {
		res.DeliveryErr = err.Error()
		e.deps.Metrics.DeliveryFailed()
		return res, nil
	}
	res.Delivered = true
	return res, nil
}

func (e *Engine) skip(report *types.ScanReport, symbol string, err error) {
	e.deps.Metrics.SymbolSkipped(err)
	report.Skipped = append(report.Skipped, types.AsSkipped(symbol, err))
}

// reserve returns buying power left after an in-pass commitment. Only BUYs and
// new shorts consume buying power; trims release nothing until filled.
func reserve(bp float64, a types.Action, price float64) float64 {
	consumes := a.Action == types.Buy || (a.Action == types.Sell && !a.InPortfolio)
	if !consumes || a.Quantity <= 0 {
		return bp
	}
	left := bp - a.Quantity*price
	if left < 0 {
		return 0
	}
	return left
}

// normalizeWatchlist upper-cases symbols and drops blanks and repeats,
// keeping first-seen order.
func normalizeWatchlist(watchlist []string) []string {
	seen := make(map[string]bool, len(watchlist))
	out := make([]string, 0, len(watchlist))
	for _, s := range watchlist {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
