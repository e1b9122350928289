package engine

import (
	"watchlist-scanner/internal/engine/engineobs"
	"watchlist-scanner/internal/interfaces"
)

// New builds the scan coordinator wrapped with logging and tracing.
func New(deps Deps, opts Options) (interfaces.Scanner, error) {
	eng, err := newEngine(deps, opts)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(eng), nil
}
