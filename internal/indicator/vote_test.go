package indicator

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"

	"watchlist-scanner/internal/types"
)

func TestRequired(t *testing.T) {
	assert.Equal(t, 4, Required(6, DefaultVoteFraction))
	assert.Equal(t, 4, Required(5, DefaultVoteFraction))
	assert.Equal(t, 2, Required(3, DefaultVoteFraction))
	assert.Equal(t, 1, Required(1, DefaultVoteFraction))
	assert.Equal(t, 4, Required(6, 2.0/3.0))
	assert.Equal(t, 6, Required(6, 1))
}

func TestTallyAllBallotCombinations(t *testing.T) {
	names := AllIndicators()
	for mask := 0; mask < 1<<len(names); mask++ {
		ballots := make([]Ballot, len(names))
		for i, n := range names {
			ballots[i] = Ballot{Indicator: n, Bullish: mask&(1<<i) != 0}
		}
		bull := bits.OnesCount(uint(mask))
		bear := len(names) - bull

		want := types.Neutral
		switch {
		case bull >= 4:
			want = types.Bullish
		case bear >= 4:
			want = types.Bearish
		}

		got, b, s := Tally(ballots, DefaultVoteFraction)
		assert.Equal(t, want, got, "mask %06b", mask)
		assert.Equal(t, bull, b)
		assert.Equal(t, bear, s)
	}
}

func TestTallyLegacyFive(t *testing.T) {
	ballots := []Ballot{{RSI, true}, {Momentum, true}, {MACD, true}, {SMA20, true}, {SMA50, false}}
	sig, _, _ := Tally(ballots, DefaultVoteFraction)
	assert.Equal(t, types.Bullish, sig)

	ballots[3].Bullish = false
	sig, _, _ = Tally(ballots, DefaultVoteFraction)
	assert.Equal(t, types.Neutral, sig, "3 of 5 is not enough")
}

func TestTallyEmpty(t *testing.T) {
	sig, b, s := Tally(nil, DefaultVoteFraction)
	assert.Equal(t, types.Neutral, sig)
	assert.Zero(t, b)
	assert.Zero(t, s)
}

func TestBallots(t *testing.T) {
	snap := types.IndicatorSnapshot{
		RSISignal:      types.RSIOversold,
		MomentumSignal: types.MomentumNegative,
		MACDCrossover:  types.CrossoverBullish,
		PriceVsSMA20:   types.Above,
		PriceVsSMA50:   types.Below,
		PriceVsVWAP:    types.Above,
	}
	got := Ballots(snap, AllIndicators())
	assert.Equal(t, []Ballot{
		{RSI, true}, {Momentum, false}, {MACD, true},
		{SMA20, true}, {SMA50, false}, {VWAP, true},
	}, got)

	snap.RSISignal = types.RSINeutral
	assert.True(t, Ballots(snap, []Name{RSI})[0].Bullish, "neutral RSI votes bullish")
	snap.RSISignal = types.RSIOverbought
	assert.False(t, Ballots(snap, []Name{RSI})[0].Bullish)

	assert.Len(t, Ballots(snap, LegacyIndicators()), 5)
}
