package zerodha

import (
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// kiteAPI is the subset of the Kite Connect client used by the adapter.
// *kiteconnect.Client satisfies it.
type kiteAPI interface {
	// GetUserMargins returns equity and commodity segment margins
	GetUserMargins() (kiteconnect.AllMargins, error)

	// GetPositions returns day and net positions
	GetPositions() (kiteconnect.Positions, error)

	// GetHoldings returns long-term delivery holdings
	GetHoldings() (kiteconnect.Holdings, error)

	// GetInstrumentsByExchange returns the instrument dump for one exchange
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)

	// GetHistoricalData returns candles for an instrument token
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

var _ kiteAPI = (*kiteconnect.Client)(nil)
