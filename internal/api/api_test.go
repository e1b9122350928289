package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-scanner/internal/types"
)

func TestGetJSONDecodesAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/NVDA/bars", r.URL.Path)
		assert.Equal(t, "1Day", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		_ = json.NewEncoder(w).Encode(map[string]any{"symbol": "NVDA", "count": 3})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("APCA-API-KEY-ID", "key"), WithLogging(true))

	var out struct {
		Symbol string `json:"symbol"`
		Count  int    `json:"count"`
	}
	err := c.Do(context.Background(), Request{
		Method:     http.MethodGet,
		Path:       "/v2/stocks/{symbol}/bars",
		PathParams: map[string]string{"symbol": "NVDA"},
		Query:      map[string]string{"timeframe": "1Day"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", out.Symbol)
	assert.Equal(t, 3, out.Count)
}

func TestPostJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	require.NoError(t, c.PostJSON(context.Background(), "/hook", map[string]string{"ticker": "ANET"}, nil))
	assert.Equal(t, "ANET", got["ticker"])
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   error
	}{
		{http.StatusNotFound, types.ErrDataUnavailable},
		{http.StatusTooManyRequests, types.ErrRateLimited},
		{http.StatusInternalServerError, types.ErrTransient},
		{http.StatusBadGateway, types.ErrTransient},
		{http.StatusUnauthorized, types.ErrConfig},
		{http.StatusUnprocessableEntity, types.ErrInvalidInput},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))

		err := NewClient(WithBaseURL(srv.URL)).GetJSON(context.Background(), "/x", nil, nil)
		srv.Close()

		assert.ErrorIs(t, err, tc.kind, "status %d", tc.status)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, tc.status, se.Status)
		assert.Contains(t, se.Error(), "nope")
	}
}

func TestTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	err := c.GetJSON(context.Background(), "/slow", nil, nil)
	assert.ErrorIs(t, err, types.ErrTransient)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetry(3, time.Millisecond, 5*time.Millisecond))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/flaky", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient(WithBaseURL(srv.URL)).GetJSON(context.Background(), "/", nil, &out)
	assert.ErrorIs(t, err, types.ErrDataUnavailable)
}
