package interfaces

import (
	"context"

	"watchlist-scanner/internal/types"
)

// Scanner runs one batch pass over a watchlist.
type Scanner interface {
	Scan(ctx context.Context, watchlist []string) (*types.ScanReport, error)
}

// Sink delivers an Action to a downstream consumer.
type Sink interface {
	Deliver(ctx context.Context, a types.Action) error
	Name() string
}
