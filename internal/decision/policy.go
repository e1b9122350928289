package decision

import (
	"fmt"

	"watchlist-scanner/internal/types"
)

// ShortSizing selects how a SELL is sized when the symbol is not held.
type ShortSizing string

const (
	// ShortMirrorBuy sizes a new short like a new long: equity × ShortEquityFraction / P.
	ShortMirrorBuy ShortSizing = "mirror_buy"
	// ShortNone emits the SELL intent with quantity 0.
	ShortNone ShortSizing = "none"
)

// Policy holds the thresholds and sizing fractions of the rule table.
type Policy struct {
	BuyScoreAbove  int `yaml:"buy_score_above" default:"7" validate:"min=1,max=10"`
	SellScoreBelow int `yaml:"sell_score_below" default:"4" validate:"min=1,max=10"`

	NewPositionEquityFraction float64 `yaml:"new_position_equity_fraction" default:"0.10" validate:"gt=0,lte=1"`
	AddToPositionFraction     float64 `yaml:"add_to_position_fraction" default:"0.30" validate:"gt=0,lte=1"`
	TrimFraction              float64 `yaml:"trim_fraction" default:"0.50" validate:"gt=0,lte=1"`
	CriticalTrimFraction      float64 `yaml:"critical_trim_fraction" default:"0.50" validate:"gt=0,lte=1"`
	ShortEquityFraction       float64 `yaml:"short_equity_fraction" default:"0.10" validate:"gt=0,lte=1"`

	ShortSizing ShortSizing `yaml:"short_sizing" default:"mirror_buy" validate:"oneof=mirror_buy none"`
}

func DefaultPolicy() Policy {
	return Policy{
		BuyScoreAbove:             7,
		SellScoreBelow:            4,
		NewPositionEquityFraction: 0.10,
		AddToPositionFraction:     0.30,
		TrimFraction:              0.50,
		CriticalTrimFraction:      0.50,
		ShortEquityFraction:       0.10,
		ShortSizing:               ShortMirrorBuy,
	}
}

func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: decision policy: %v", types.ErrConfig, err)
	}
	// The BUY and SELL bands must not overlap or a score could match both.
	if p.SellScoreBelow > p.BuyScoreAbove {
		return fmt.Errorf("%w: sell_score_below %d exceeds buy_score_above %d",
			types.ErrConfig, p.SellScoreBelow, p.BuyScoreAbove)
	}
	return nil
}
