package indicator

import (
	"fmt"
	"time"

	"watchlist-scanner/internal/ta"
	"watchlist-scanner/internal/types"
)

// Name identifies one voting indicator.
type Name string

const (
	RSI      Name = "rsi"
	Momentum Name = "momentum"
	MACD     Name = "macd"
	SMA20    Name = "sma20"
	SMA50    Name = "sma50"
	VWAP     Name = "vwap"
)

// AllIndicators is the six-indicator voting set.
func AllIndicators() []Name {
	return []Name{RSI, Momentum, MACD, SMA20, SMA50, VWAP}
}

// LegacyIndicators is the earlier five-indicator set without VWAP.
func LegacyIndicators() []Name {
	return []Name{RSI, Momentum, MACD, SMA20, SMA50}
}

// DefaultVoteFraction yields 4 of 6 and 4 of 5.
const DefaultVoteFraction = 0.66

// Settings configures the engine. Zero values are not defaults; start from
// DefaultSettings.
type Settings struct {
	Enabled      []Name
	VoteFraction float64

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	ROCPeriod     int
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	SMAShort      int
	SMALong       int
	VWAPPeriod    int

	LookbackDays  int
	Concurrency   int
	SymbolTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:       AllIndicators(),
		VoteFraction:  DefaultVoteFraction,
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
		ROCPeriod:     10,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		SMAShort:      20,
		SMALong:       50,
		VWAPPeriod:    20,
		LookbackDays:  150,
		Concurrency:   4,
		SymbolTimeout: 30 * time.Second,
	}
}

// MinBars is the number of valid bars needed for every indicator to be defined.
func (s Settings) MinBars() int {
	n := s.SMALong
	for _, v := range []int{
		s.SMAShort,
		s.RSIPeriod + 1,
		s.ROCPeriod + 1,
		ta.MACDWarmup(s.MACDSlow, s.MACDSignal),
		s.VWAPPeriod,
	} {
		if v > n {
			n = v
		}
	}
	return n
}

func (s Settings) Validate() error {
	if len(s.Enabled) == 0 {
		return fmt.Errorf("%w: no indicators enabled", types.ErrConfig)
	}
	seen := map[Name]bool{}
	for _, n := range s.Enabled {
		if !known(n) {
			return fmt.Errorf("%w: unknown indicator %q", types.ErrConfig, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: indicator %q listed twice", types.ErrConfig, n)
		}
		seen[n] = true
	}
	// At or below one half both sides could reach the threshold at once.
	if s.VoteFraction <= 0.5 || s.VoteFraction > 1 {
		return fmt.Errorf("%w: vote fraction must be in (0.5, 1], got %.2f", types.ErrConfig, s.VoteFraction)
	}
	if s.RSIOversold >= s.RSIOverbought {
		return fmt.Errorf("%w: rsi oversold %.1f must be below overbought %.1f", types.ErrConfig, s.RSIOversold, s.RSIOverbought)
	}
	if s.MACDFast >= s.MACDSlow {
		return fmt.Errorf("%w: macd fast period must be shorter than slow", types.ErrConfig)
	}
	for name, p := range map[string]int{
		"rsi": s.RSIPeriod, "roc": s.ROCPeriod, "macd_signal": s.MACDSignal,
		"sma_short": s.SMAShort, "sma_long": s.SMALong, "vwap": s.VWAPPeriod,
	} {
		if p <= 0 {
			return fmt.Errorf("%w: %s period must be positive", types.ErrConfig, name)
		}
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive", types.ErrConfig)
	}
	return nil
}

func known(n Name) bool {
	for _, k := range AllIndicators() {
		if k == n {
			return true
		}
	}
	return false
}
