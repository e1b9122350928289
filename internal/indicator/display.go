package indicator

import (
	"github.com/shopspring/decimal"

	"watchlist-scanner/internal/types"
)

// Rounded returns a copy of s for display. Classifications are carried over
// untouched; they were decided on the full precision values.
func Rounded(s types.IndicatorSnapshot) types.IndicatorSnapshot {
	r := s
	r.Price = round(s.Price, 4)
	r.RSIValue = round(s.RSIValue, 2)
	r.MomentumPct = round(s.MomentumPct, 4)
	r.MACDLine = round(s.MACDLine, 4)
	r.MACDSignalLine = round(s.MACDSignalLine, 4)
	r.MACDHistogram = round(s.MACDHistogram, 4)
	r.SMA20 = round(s.SMA20, 4)
	r.SMA50 = round(s.SMA50, 4)
	r.VWAP20 = round(s.VWAP20, 4)
	return r
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
