package main

import (
	"errors"
	"fmt"
	"os"

	"watchlist-scanner/internal/types"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration problems, 3 when the account snapshot
// could not be taken and 1 for anything else.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrConfig):
		return 2
	case errors.Is(err, types.ErrAccountUnavailable):
		return 3
	default:
		return 1
	}
}
