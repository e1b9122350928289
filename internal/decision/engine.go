package decision

import (
	"github.com/shopspring/decimal"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/types"
)

// Rule names, in evaluation order.
const (
	RuleCriticalRisk = "critical_risk"
	RuleBuy          = "buy"
	RuleSell         = "sell"
	RuleHold         = "hold"
)

// Engine evaluates the ordered rule table. It holds no mutable state; the
// same input always yields the same Action.
type Engine struct {
	policy Policy
	rules  []rule
}

var _ interfaces.Decider = (*Engine)(nil)

func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{policy: p}
	e.rules = []rule{
		{name: RuleCriticalRisk, match: e.criticalRisk, size: e.sizeCritical},
		{name: RuleBuy, match: e.buySignal, size: e.sizeBuy},
		{name: RuleSell, match: e.sellSignal, size: e.sizeSell},
		{name: RuleHold, match: always, size: sizeHold},
	}
	return e, nil
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// evaluation is the per-call working state of one Decide.
type evaluation struct {
	in     types.DecisionInput
	held   float64
	sizer  sizer
	capped bool
	short  bool
}

type rule struct {
	name  string
	match func(ev *evaluation) bool
	size  func(ev *evaluation) (types.Side, decimal.Decimal)
}

// Decide returns the first matching rule's Action for in. Invalid input is
// rejected with types.ErrInvalidInput.
func (e *Engine) Decide(in types.DecisionInput) (types.Action, error) {
	if err := ValidateInput(in); err != nil {
		return types.Action{}, err
	}

	ev := &evaluation{
		in:    in,
		held:  in.Account.Held(in.Symbol),
		sizer: newSizer(in.Snapshot.Price, in.Account.Equity, in.Account.BuyingPower),
	}

	for _, r := range e.rules {
		if !r.match(ev) {
			continue
		}
		side, qty := r.size(ev)
		a := types.Action{
			Ticker:      in.Symbol,
			Action:      side,
			Quantity:    toFloat(qty),
			InPortfolio: ev.held > 0,
			Timestamp:   in.AsOf,
			Rule:        r.name,
		}
		a.Thesis = e.thesis(ev, a)
		return a, nil
	}
	// Unreachable: the hold rule always matches.
	return types.Action{}, types.ErrInternal
}

func (e *Engine) criticalRisk(ev *evaluation) bool {
	return ev.in.Risk.Critical
}

func (e *Engine) buySignal(ev *evaluation) bool {
	return ev.in.Snapshot.OverallSignal == types.Bullish && ev.in.Fundamental.Score > e.policy.BuyScoreAbove
}

func (e *Engine) sellSignal(ev *evaluation) bool {
	return ev.in.Snapshot.OverallSignal == types.Bearish && ev.in.Fundamental.Score < e.policy.SellScoreBelow
}

func always(*evaluation) bool { return true }

func (e *Engine) sizeCritical(ev *evaluation) (types.Side, decimal.Decimal) {
	if ev.held > 0 {
		return types.Sell, ev.sizer.ofPosition(ev.held, e.policy.CriticalTrimFraction)
	}
	return types.Sell, e.sizeShort(ev)
}

func (e *Engine) sizeBuy(ev *evaluation) (types.Side, decimal.Decimal) {
	var qty decimal.Decimal
	if ev.held > 0 {
		qty = ev.sizer.ofPosition(ev.held, e.policy.AddToPositionFraction)
	} else {
		qty = ev.sizer.ofEquity(e.policy.NewPositionEquityFraction)
	}
	qty, ev.capped = ev.sizer.capped(qty)
	return types.Buy, qty
}

func (e *Engine) sizeSell(ev *evaluation) (types.Side, decimal.Decimal) {
	if ev.held > 0 {
		return types.Sell, ev.sizer.ofPosition(ev.held, e.policy.TrimFraction)
	}
	return types.Sell, e.sizeShort(ev)
}

// sizeShort sizes a SELL on a symbol that is not held.
func (e *Engine) sizeShort(ev *evaluation) decimal.Decimal {
	ev.short = true
	if e.policy.ShortSizing == ShortNone {
		return decimal.Zero
	}
	var qty decimal.Decimal
	qty, ev.capped = ev.sizer.capped(ev.sizer.ofEquity(e.policy.ShortEquityFraction))
	return qty
}

func sizeHold(*evaluation) (types.Side, decimal.Decimal) {
	return types.Hold, decimal.Zero
}
