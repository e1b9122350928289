package decision

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"watchlist-scanner/internal/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateInput rejects inputs the rule table cannot size. Errors wrap
// types.ErrInvalidInput.
func ValidateInput(in types.DecisionInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrInvalidInput, in.Symbol, err)
	}
	if in.Snapshot.Symbol != "" && in.Snapshot.Symbol != in.Symbol {
		return fmt.Errorf("%w: snapshot is for %s, not %s", types.ErrInvalidInput, in.Snapshot.Symbol, in.Symbol)
	}
	if p := in.Snapshot.Price; !finite(p) || p <= 0 {
		return fmt.Errorf("%w: %s: price must be positive, got %v", types.ErrInvalidInput, in.Symbol, p)
	}
	switch in.Snapshot.OverallSignal {
	case types.Bullish, types.Bearish, types.Neutral:
	default:
		return fmt.Errorf("%w: %s: unknown signal %q", types.ErrInvalidInput, in.Symbol, in.Snapshot.OverallSignal)
	}
	if !finite(in.Account.Equity) || !finite(in.Account.BuyingPower) {
		return fmt.Errorf("%w: %s: account figures must be finite", types.ErrInvalidInput, in.Symbol)
	}
	if !finite(in.Account.Held(in.Symbol)) {
		return fmt.Errorf("%w: %s: held quantity must be finite", types.ErrInvalidInput, in.Symbol)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
