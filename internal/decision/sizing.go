package decision

import (
	"github.com/shopspring/decimal"
)

// sizer converts sizing fractions into share quantities at price P.
// Arithmetic is done in decimal so that e.g. 100 × 0.30 is exactly 30.
type sizer struct {
	price       decimal.Decimal
	equity      decimal.Decimal
	buyingPower decimal.Decimal
}

func newSizer(price, equity, buyingPower float64) sizer {
	return sizer{
		price:       decimal.NewFromFloat(price),
		equity:      decimal.NewFromFloat(equity),
		buyingPower: decimal.NewFromFloat(buyingPower),
	}
}

// ofEquity returns (equity × fraction) / P.
func (s sizer) ofEquity(fraction float64) decimal.Decimal {
	return s.equity.Mul(decimal.NewFromFloat(fraction)).Div(s.price)
}

// ofPosition returns (held × P × fraction) / P, which reduces to held × fraction.
func (s sizer) ofPosition(held, fraction float64) decimal.Decimal {
	return decimal.NewFromFloat(held).Mul(decimal.NewFromFloat(fraction))
}

// capped clamps qty so that qty × P does not exceed buying power.
//
// Returns:
//   - the clamped quantity
//   - true if the clamp was applied
func (s sizer) capped(qty decimal.Decimal) (decimal.Decimal, bool) {
	max := s.buyingPower.Div(s.price)
	if qty.Mul(s.price).GreaterThan(s.buyingPower) {
		return max, true
	}
	return qty, false
}

func toFloat(d decimal.Decimal) float64 {
	if d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}
