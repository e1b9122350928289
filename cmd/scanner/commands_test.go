package main

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-scanner/internal/decision"
	"watchlist-scanner/internal/types"
)

func TestDecideFlagsInput(t *testing.T) {
	f := &decideFlags{
		symbol: "NVDA", price: 100, signal: "Bullish", score: 8,
		held: 10, equity: 100000, buyingPower: 5000, bullVotes: 5, bearVotes: 1, totalVotes: 6,
	}
	now := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	in := f.input(now)

	assert.Equal(t, 10.0, in.Account.Held("NVDA"))
	assert.Equal(t, now, in.AsOf)

	eng, err := decision.NewEngine(decision.DefaultPolicy())
	require.NoError(t, err)
	a, err := eng.Decide(in)
	require.NoError(t, err)
	assert.Equal(t, types.Buy, a.Action)
	assert.Equal(t, 3.0, a.Quantity)
	assert.True(t, a.InPortfolio)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "watchlist-scanner dev")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(fmt.Errorf("load: %w", types.ErrConfig)))
	assert.Equal(t, 1, exitCode(types.ErrTransient))
	assert.Equal(t, 3, exitCode(fmt.Errorf("%w: %w", types.ErrAccountUnavailable, types.ErrTransient)))
	assert.Equal(t, 2, exitCode(fmt.Errorf("%w: %w", types.ErrAccountUnavailable, types.ErrConfig)), "bad credentials stay a config error")
}
