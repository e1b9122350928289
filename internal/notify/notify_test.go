package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-scanner/internal/types"
)

var action = types.Action{
	Ticker:      "NVDA",
	Action:      types.Buy,
	Quantity:    10,
	Thesis:      "Technical signal is Bullish with 5 of 6 indicators bullish at price 1000.",
	InPortfolio: false,
	Timestamp:   time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC),
	Rule:        "buy",
}

func TestWebhookPostsActionPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webhook/trade", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL+"/webhook/trade", time.Second)
	require.NoError(t, err)
	require.NoError(t, wh.Deliver(context.Background(), action))

	assert.Equal(t, map[string]any{
		"ticker":       "NVDA",
		"action":       "BUY",
		"quantity":     10.0,
		"thesis":       action.Thesis,
		"in_portfolio": false,
		"timestamp":    "2025-06-02T20:00:00Z",
	}, got)
}

func TestWebhookFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh, err := NewWebhook(srv.URL, time.Second)
	require.NoError(t, err)
	err = wh.Deliver(context.Background(), action)
	assert.ErrorIs(t, err, types.ErrDeliveryFailure)

	_, err = NewWebhook("", time.Second)
	assert.ErrorIs(t, err, types.ErrConfig)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaKeysByTicker(t *testing.T) {
	fw := &fakeWriter{}
	k := &Kafka{writer: fw, topic: "actions"}

	require.NoError(t, k.Deliver(context.Background(), action))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "NVDA", string(fw.msgs[0].Key))

	var decoded types.Action
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &decoded))
	assert.Equal(t, action.Ticker, decoded.Ticker)
	assert.Empty(t, decoded.Rule, "rule is not part of the payload")

	fw.err = errors.New("leader not available")
	assert.ErrorIs(t, k.Deliver(context.Background(), action), types.ErrDeliveryFailure)
	require.NoError(t, k.Close())

	_, err := NewKafka(nil, "actions")
	assert.ErrorIs(t, err, types.ErrConfig)
}

type failingSink struct{ calls int }

func (f *failingSink) Name() string { return "failing" }

func (f *failingSink) Deliver(context.Context, types.Action) error {
	f.calls++
	return errors.New("boom")
}

func TestFanoutDeliversToAllAndJoins(t *testing.T) {
	var buf bytes.Buffer
	bad := &failingSink{}
	out := NewStdout(&buf)
	f := NewFanout(bad, out)

	err := f.Deliver(context.Background(), action)
	assert.ErrorIs(t, err, types.ErrDeliveryFailure)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, 1, bad.calls)
	assert.Contains(t, buf.String(), `"ticker":"NVDA"`)
	assert.Equal(t, 2, f.Len())

	buf.Reset()
	require.NoError(t, NewFanout(out).Deliver(context.Background(), action))
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}
