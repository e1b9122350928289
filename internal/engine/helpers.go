package engine

import (
	"time"

	"watchlist-scanner/internal/types"
)

type nopMetrics struct{}

func (nopMetrics) SymbolSkipped(error)               {}
func (nopMetrics) ActionEmitted(types.Action)        {}
func (nopMetrics) DeliveryFailed()                   {}
func (nopMetrics) PassFinished(time.Time, time.Time) {}
