package indicator

import (
	"math"

	"watchlist-scanner/internal/types"
)

// Ballot is one indicator's vote.
type Ballot struct {
	Indicator Name
	Bullish   bool
}

// Ballots casts one ballot per enabled indicator. RSI votes bullish unless
// overbought; the rest follow their own classification.
func Ballots(s types.IndicatorSnapshot, enabled []Name) []Ballot {
	out := make([]Ballot, 0, len(enabled))
	for _, n := range enabled {
		var bull bool
		switch n {
		case RSI:
			bull = s.RSISignal != types.RSIOverbought
		case Momentum:
			bull = s.MomentumSignal == types.MomentumPositive
		case MACD:
			bull = s.MACDCrossover == types.CrossoverBullish
		case SMA20:
			bull = s.PriceVsSMA20 == types.Above
		case SMA50:
			bull = s.PriceVsSMA50 == types.Above
		case VWAP:
			bull = s.PriceVsVWAP == types.Above
		default:
			continue
		}
		out = append(out, Ballot{Indicator: n, Bullish: bull})
	}
	return out
}

// Required is the ballot count one side needs to carry the vote.
func Required(total int, fraction float64) int {
	if total <= 0 {
		return 1
	}
	need := int(math.Ceil(fraction*float64(total) - 1e-9))
	if need < 1 {
		need = 1
	}
	if need > total {
		need = total
	}
	return need
}

// Tally counts ballots and decides the overall signal.
func Tally(ballots []Ballot, fraction float64) (signal types.Signal, bullish, bearish int) {
	for _, b := range ballots {
		if b.Bullish {
			bullish++
		} else {
			bearish++
		}
	}
	need := Required(len(ballots), fraction)
	switch {
	case len(ballots) == 0:
		signal = types.Neutral
	case bullish >= need:
		signal = types.Bullish
	case bearish >= need:
		signal = types.Bearish
	default:
		signal = types.Neutral
	}
	return signal, bullish, bearish
}
