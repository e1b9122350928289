// Package static serves a fixed account snapshot, for paper runs without
// broker credentials.
package static

import (
	"context"
	"fmt"
	"strings"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/types"
)

type Account struct {
	state types.AccountState
}

var _ interfaces.AccountSource = (*Account)(nil)

// New copies state and upper-cases position symbols.
func New(state types.AccountState) (*Account, error) {
	if state.Equity < 0 || state.BuyingPower < 0 || state.Cash < 0 {
		return nil, fmt.Errorf("%w: static account figures must be non-negative", types.ErrConfig)
	}
	positions := make(map[string]float64, len(state.Positions))
	for sym, qty := range state.Positions {
		positions[strings.ToUpper(sym)] += qty
	}
	state.Positions = positions
	return &Account{state: state}, nil
}

func (a *Account) AccountState(ctx context.Context) (types.AccountState, error) {
	out := a.state
	out.Positions = make(map[string]float64, len(a.state.Positions))
	for k, v := range a.state.Positions {
		out.Positions[k] = v
	}
	return out, nil
}
