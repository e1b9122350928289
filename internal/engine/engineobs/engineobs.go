package engineobs

import (
	"context"
	"time"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

type observableScanner struct {
	scanner interfaces.Scanner
}

var _ interfaces.Scanner = (*observableScanner)(nil)

func Wrap(s interfaces.Scanner) interfaces.Scanner {
	return &observableScanner{
		scanner: s,
	}
}

func (ob *observableScanner) Scan(ctx context.Context, watchlist []string) (*types.ScanReport, error) {
	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting scan cycle",
		"watchlist", watchlist,
	)

	report, err := ob.scanner.Scan(ctx, watchlist)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Scan cycle aborted", err,
			"kind", types.KindOf(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	counts := map[types.Side]int{}
	for _, r := range report.Results {
		counts[r.Action.Action]++
	}
	logger.InfoSkip(ctx, 1, "Scan cycle completed",
		"run_id", report.RunID,
		"buy", counts[types.Buy],
		"sell", counts[types.Sell],
		"hold", counts[types.Hold],
		"skipped", len(report.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}
