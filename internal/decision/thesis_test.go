package decision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-scanner/internal/types"
)

func TestThesisCoversEveryPart(t *testing.T) {
	e := newTestEngine(t)
	in := input(types.Bullish, 8, 123.456789)
	in.Risk.Sentiment = "Positive"

	a, err := e.Decide(in)
	require.NoError(t, err)

	assert.Contains(t, a.Thesis, "5 of 6 indicators bullish")
	assert.Contains(t, a.Thesis, "123.4568")
	assert.Contains(t, a.Thesis, "Fundamental score is 8/10, driven by revenue growth of 60%")
	assert.Contains(t, a.Thesis, "News sentiment is Positive")
	assert.Contains(t, a.Thesis, "Not currently held")
	assert.Contains(t, a.Thesis, "10% of equity")
}

func TestThesisLeadsWithCriticalRisk(t *testing.T) {
	e := newTestEngine(t)
	in := held(input(types.Bullish, 9, 50), 10)
	in.Risk = types.NewsRisk{Critical: true, Detail: "Auditor resigned.", Sentiment: "Negative"}

	a, err := e.Decide(in)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Thesis, "CRITICAL RISK: Auditor resigned."), a.Thesis)
	assert.Contains(t, a.Thesis, "Currently holding 10 shares")
	assert.Contains(t, a.Thesis, "selling 5 shares, 50% of the position")
}

func TestThesisExplainsHold(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Decide(input(types.Bullish, 6, 50))
	require.NoError(t, err)
	assert.Contains(t, a.Thesis, "inside the 4-7 neutral band")

	in := input(types.Neutral, 9, 50)
	in.Snapshot.BullishVotes, in.Snapshot.BearishVotes = 3, 3
	a, err = e.Decide(in)
	require.NoError(t, err)
	assert.Contains(t, a.Thesis, "3 of 6 bullish and 3 of 6 bearish")
	assert.Contains(t, a.Thesis, "Neutral signal does not confirm score 9")
}

func TestThesisWithoutTally(t *testing.T) {
	e := newTestEngine(t)
	in := input(types.Bearish, 2, 20)
	in.Snapshot.TotalVotes = 0
	in.Fundamental.DrivingMetric = ""

	a, err := e.Decide(in)
	require.NoError(t, err)
	assert.Contains(t, a.Thesis, "Technical signal is Bearish at price 20.")
	assert.Contains(t, a.Thesis, "Fundamental score is 2/10.")
	assert.Contains(t, a.Thesis, "No critical news risk flagged.")
}
