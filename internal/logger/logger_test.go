package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-scanner/internal/types"
)

func capture(t *testing.T, detailed bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: "INFO", Format: "json", DetailedLogging: detailed, Output: &buf}))
	t.Cleanup(func() { _ = InitWithConfig(LogConfig{Output: io.Discard}) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestDecisionRecord(t *testing.T) {
	buf := capture(t, false)
	Decision(context.Background(), types.Action{Ticker: "NVDA", Action: types.Buy, Quantity: 2.5, Rule: "buy"}, "price", 120.0)

	recs := lines(t, buf)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "Trading decision made", r["msg"])
	assert.Equal(t, "DECISION", r["type"])
	assert.Equal(t, "NVDA", r["symbol"])
	assert.Equal(t, "BUY", r["action"])
	assert.Equal(t, 2.5, r["quantity"])
	assert.Equal(t, 120.0, r["price"])
}

func TestSymbolSkippedCarriesKind(t *testing.T) {
	buf := capture(t, false)
	err := types.NewSymbolError("APLD", types.ErrInsufficientHistory, io.ErrUnexpectedEOF)
	SymbolSkipped(context.Background(), "APLD", err, "stage", "indicators")

	recs := lines(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "InsufficientHistory", recs[0]["kind"])
	assert.Equal(t, "indicators", recs[0]["stage"])
}

func TestDebugNeedsDetailedLogging(t *testing.T) {
	buf := capture(t, false)
	Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	buf = capture(t, true)
	Debug(context.Background(), "shown")
	recs := lines(t, buf)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "source")
}

func TestOperationFailureIsDebugOnly(t *testing.T) {
	buf := capture(t, false)
	op := StartOperation(context.Background(), "metrics.Push", "job", "scanner")
	op.EndWithError(types.ErrTransient)
	assert.Empty(t, buf.String())

	buf = capture(t, true)
	op = StartOperation(context.Background(), "metrics.Push")
	op.EndWithError(types.ErrTransient)
	recs := lines(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "Operation failed", recs[1]["msg"])
	assert.Equal(t, "Transient", recs[1]["kind"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("WARN").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}

func TestFileSinkReceivesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scanner.log")
	var stdout bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Format: "json", Output: &stdout, File: path, FileMaxSizeMB: 5, FileMaxBackups: 5}))
	t.Cleanup(func() { _ = InitWithConfig(LogConfig{Output: io.Discard}) })

	Info(context.Background(), "Scan pass started", "symbols", 4)
	require.NoError(t, Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Scan pass started")
	assert.Equal(t, stdout.String(), string(b))
	assert.NoError(t, Close(), "closing twice is harmless")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_FILE", "/var/log/scanner.log")
	t.Setenv("LOG_FILE_MAX_MB", "")
	t.Setenv("LOG_FILE_BACKUPS", "9")

	c := LoadConfigFromEnv()
	assert.Equal(t, "/var/log/scanner.log", c.File)
	assert.Equal(t, 5, c.FileMaxSizeMB)
	assert.Equal(t, 9, c.FileMaxBackups)
}
