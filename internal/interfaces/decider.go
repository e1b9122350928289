package interfaces

import (
	"context"

	"watchlist-scanner/internal/types"
)

// FundamentalSource returns an already-computed fundamental score.
type FundamentalSource interface {
	FundamentalScore(ctx context.Context, symbol string) (types.Fundamental, error)
}

// RiskSource returns the already-computed news risk flag.
type RiskSource interface {
	CriticalRisk(ctx context.Context, symbol string) (types.NewsRisk, error)
}

// Decider turns one DecisionInput into an Action without side effects.
type Decider interface {
	Decide(in types.DecisionInput) (types.Action, error)
}
