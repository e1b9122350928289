package ta

import (
	"math"

	"github.com/markcheno/go-talib"
)

// All functions return the value at the last element of the input and NaN
// when the series is too short for the indicator to be defined. talib indexes
// past the end of short inputs, so every wrapper checks length first.

func SMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return math.NaN()
	}
	return last(talib.Sma(closes, n))
}

// RSI is Wilder-smoothed, seeded with the simple average of the first period.
// A series that never moves has no gains or losses and no RSI.
func RSI(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period+1 || Flat(closes) {
		return math.NaN()
	}
	v := last(talib.Rsi(closes, period))
	if math.IsNaN(v) {
		return v
	}
	return math.Max(0, math.Min(100, v))
}

// ROC is (close[t]/close[t-period] - 1) * 100.
func ROC(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	if closes[len(closes)-1-period] == 0 {
		return math.NaN()
	}
	return last(talib.Roc(closes, period))
}

// MACD returns the line, signal line and histogram at the last bar.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist float64) {
	nan := math.NaN()
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return nan, nan, nan
	}
	if len(closes) < MACDWarmup(slow, signal) {
		return nan, nan, nan
	}
	l, s, h := talib.Macd(closes, fast, slow, signal)
	return last(l), last(s), last(h)
}

// MACDWarmup is the number of closes needed before MACD has a value.
func MACDWarmup(slow, signal int) int {
	return slow + signal - 1
}

// VWAP is the rolling volume weighted average of closes over the trailing n
// bars. Zero total volume leaves it undefined.
func VWAP(closes, volumes []float64, n int) float64 {
	if n <= 0 || len(closes) != len(volumes) || len(closes) < n {
		return math.NaN()
	}
	pv, vol := 0.0, 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		pv += closes[i] * volumes[i]
		vol += volumes[i]
	}
	if vol <= 0 {
		return math.NaN()
	}
	return pv / vol
}

// Flat reports whether every value equals the first. RSI is 0/0 on such a
// series.
func Flat(vals []float64) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	v := series[len(series)-1]
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// Defined reports whether every value is a finite number.
func Defined(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
