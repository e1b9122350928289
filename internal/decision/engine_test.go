package decision

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-scanner/internal/types"
)

var asOf = time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC)

func input(signal types.Signal, score int, price float64) types.DecisionInput {
	return types.DecisionInput{
		Symbol: "NVDA",
		Snapshot: types.IndicatorSnapshot{
			Symbol:        "NVDA",
			Price:         price,
			OverallSignal: signal,
			BullishVotes:  5,
			BearishVotes:  1,
			TotalVotes:    6,
		},
		Fundamental: types.Fundamental{Score: score, DrivingMetric: "revenue growth of 60%"},
		Account: types.AccountState{
			Equity:      100000,
			BuyingPower: 50000,
			Positions:   map[string]float64{},
		},
		AsOf: asOf,
	}
}

func held(in types.DecisionInput, qty float64) types.DecisionInput {
	in.Account.Positions = map[string]float64{in.Symbol: qty}
	return in
}

func newTestEngine(t *testing.T, mutate ...func(*Policy)) *Engine {
	t.Helper()
	p := DefaultPolicy()
	for _, m := range mutate {
		m(&p)
	}
	e, err := NewEngine(p)
	require.NoError(t, err)
	return e
}

func TestDecideRuleTable(t *testing.T) {
	critical := func(in types.DecisionInput) types.DecisionInput {
		in.Risk = types.NewsRisk{Critical: true, Detail: "SEC investigation announced"}
		return in
	}

	tests := []struct {
		name string
		in   types.DecisionInput
		side types.Side
		qty  float64
		rule string
	}{
		{"critical overrides bullish and strong score", critical(input(types.Bullish, 9, 50)), types.Sell, 200, RuleCriticalRisk},
		{"critical held trims half", critical(held(input(types.Bullish, 9, 50), 40)), types.Sell, 20, RuleCriticalRisk},
		{"buy new position", input(types.Bullish, 8, 50), types.Buy, 200, RuleBuy},
		{"buy adds to held position", held(input(types.Bullish, 10, 50), 100), types.Buy, 30, RuleBuy},
		{"score seven is not a buy", input(types.Bullish, 7, 50), types.Hold, 0, RuleHold},
		{"neutral band overrides bullish", input(types.Bullish, 6, 50), types.Hold, 0, RuleHold},
		{"neutral band overrides bearish", held(input(types.Bearish, 5, 50), 10), types.Hold, 0, RuleHold},
		{"score four is not a sell", input(types.Bearish, 4, 50), types.Hold, 0, RuleHold},
		{"held sell trims half", held(input(types.Bearish, 2, 20), 100), types.Sell, 50, RuleSell},
		{"bearish unheld opens short", input(types.Bearish, 1, 50), types.Sell, 200, RuleSell},
		{"neutral signal holds on strong score", input(types.Neutral, 9, 50), types.Hold, 0, RuleHold},
		{"neutral signal holds on weak score", input(types.Neutral, 1, 50), types.Hold, 0, RuleHold},
		{"bullish with weak score holds", input(types.Bullish, 2, 50), types.Hold, 0, RuleHold},
		{"bearish with strong score holds", input(types.Bearish, 9, 50), types.Hold, 0, RuleHold},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.Decide(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.side, a.Action)
			assert.InDelta(t, tt.qty, a.Quantity, 1e-9)
			assert.Equal(t, tt.rule, a.Rule)
			assert.Equal(t, "NVDA", a.Ticker)
			assert.Equal(t, asOf, a.Timestamp)
		})
	}
}

func TestDecideBuyCappedByBuyingPower(t *testing.T) {
	e := newTestEngine(t)
	in := input(types.Bullish, 9, 50)
	in.Account.Equity = 100000
	in.Account.BuyingPower = 400

	a, err := e.Decide(in)
	require.NoError(t, err)
	assert.Equal(t, types.Buy, a.Action)
	assert.Equal(t, 8.0, a.Quantity)
	assert.LessOrEqual(t, a.Quantity*50, 400.0)
	assert.Contains(t, a.Thesis, "capped by buying power")
}

func TestDecideAddCappedByBuyingPower(t *testing.T) {
	e := newTestEngine(t)
	in := held(input(types.Bullish, 9, 100), 1000)
	in.Account.BuyingPower = 2500

	a, err := e.Decide(in)
	require.NoError(t, err)
	assert.Equal(t, 25.0, a.Quantity)
	assert.True(t, a.InPortfolio)
}

func TestDecideSellIsNotCapped(t *testing.T) {
	e := newTestEngine(t)
	in := held(input(types.Bearish, 1, 100), 1000)
	in.Account.BuyingPower = 0

	a, err := e.Decide(in)
	require.NoError(t, err)
	assert.Equal(t, 500.0, a.Quantity)
}

func TestDecideFractionalShares(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.Decide(input(types.Bullish, 8, 333))
	require.NoError(t, err)
	assert.InDelta(t, 10000.0/333.0, a.Quantity, 1e-9)
}

func TestDecideShortSizing(t *testing.T) {
	in := input(types.Bearish, 2, 50)
	in.Account.BuyingPower = 1000

	a, err := newTestEngine(t).Decide(in)
	require.NoError(t, err)
	assert.Equal(t, types.Sell, a.Action)
	assert.Equal(t, 20.0, a.Quantity, "mirror of the buy formula, capped by buying power")
	assert.False(t, a.InPortfolio)
	assert.Contains(t, a.Thesis, "opening a short")

	a, err = newTestEngine(t, func(p *Policy) { p.ShortSizing = ShortNone }).Decide(in)
	require.NoError(t, err)
	assert.Equal(t, types.Sell, a.Action)
	assert.Zero(t, a.Quantity)
	assert.Contains(t, a.Thesis, "no size set")
}

func TestDecideNegativeHeldIsNotInPortfolio(t *testing.T) {
	a, err := newTestEngine(t).Decide(held(input(types.Bullish, 9, 50), -10))
	require.NoError(t, err)
	assert.False(t, a.InPortfolio)
	assert.Equal(t, 200.0, a.Quantity)
}

func TestDecideIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	in := held(input(types.Bullish, 9, 50), 12)
	in.Risk.Sentiment = "Positive"

	first, err := e.Decide(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Decide(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, map[string]float64{"NVDA": 12}, in.Account.Positions, "account is not mutated")
}

func TestDecideRejectsInvalidInput(t *testing.T) {
	cases := map[string]func(*types.DecisionInput){
		"zero price":        func(in *types.DecisionInput) { in.Snapshot.Price = 0 },
		"nan price":         func(in *types.DecisionInput) { in.Snapshot.Price = math.NaN() },
		"inf price":         func(in *types.DecisionInput) { in.Snapshot.Price = math.Inf(1) },
		"score too low":     func(in *types.DecisionInput) { in.Fundamental.Score = 0 },
		"score too high":    func(in *types.DecisionInput) { in.Fundamental.Score = 11 },
		"negative equity":   func(in *types.DecisionInput) { in.Account.Equity = -1 },
		"negative bp":       func(in *types.DecisionInput) { in.Account.BuyingPower = -5 },
		"infinite equity":   func(in *types.DecisionInput) { in.Account.Equity = math.Inf(1) },
		"missing symbol":    func(in *types.DecisionInput) { in.Symbol = "" },
		"snapshot mismatch": func(in *types.DecisionInput) { in.Snapshot.Symbol = "AAPL" },
		"unknown signal":    func(in *types.DecisionInput) { in.Snapshot.OverallSignal = "Sideways" },
	}
	e := newTestEngine(t)
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input(types.Bullish, 9, 50)
			mutate(&in)
			_, err := e.Decide(in)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	cases := map[string]func(*Policy){
		"bad short sizing":   func(p *Policy) { p.ShortSizing = "double" },
		"zero fraction":      func(p *Policy) { p.NewPositionEquityFraction = 0 },
		"fraction above one": func(p *Policy) { p.TrimFraction = 1.5 },
		"bands overlap":      func(p *Policy) { p.SellScoreBelow = 8; p.BuyScoreAbove = 6 },
		"score out of range": func(p *Policy) { p.BuyScoreAbove = 11 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultPolicy()
			mutate(&p)
			_, err := NewEngine(p)
			assert.ErrorIs(t, err, types.ErrConfig)
		})
	}
}
