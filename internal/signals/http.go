package signals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"watchlist-scanner/internal/api"
	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/types"
)

// HTTPSource fetches signals from GET {base}/signals/{symbol}. Both the
// score and the risk flag come from one record, which is memoised for ttl.
type HTTPSource struct {
	client *api.Client
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	rec Record
	at  time.Time
}

var (
	_ interfaces.FundamentalSource = (*HTTPSource)(nil)
	_ interfaces.RiskSource        = (*HTTPSource)(nil)
)

func NewHTTPSource(baseURL, token string, timeout, ttl time.Duration) *HTTPSource {
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(baseURL, "/")),
		api.WithTimeout(timeout),
		api.WithLogging(true),
	}
	if token != "" {
		opts = append(opts, api.WithHeader("Authorization", "Bearer "+token))
	}
	return &HTTPSource{
		client: api.NewClient(opts...),
		ttl:    ttl,
		now:    time.Now,
		memo:   make(map[string]memoEntry),
	}
}

func (h *HTTPSource) FundamentalScore(ctx context.Context, symbol string) (types.Fundamental, error) {
	r, err := h.lookup(ctx, symbol)
	if err != nil {
		return types.Fundamental{}, err
	}
	return r.fundamental(symbol)
}

func (h *HTTPSource) CriticalRisk(ctx context.Context, symbol string) (types.NewsRisk, error) {
	r, err := h.lookup(ctx, symbol)
	if err != nil {
		return types.NewsRisk{}, err
	}
	return r.risk(symbol)
}

func (h *HTTPSource) lookup(ctx context.Context, symbol string) (Record, error) {
	key := strings.ToUpper(symbol)

	h.mu.Lock()
	e, ok := h.memo[key]
	h.mu.Unlock()
	if ok && h.now().Sub(e.at) < h.ttl {
		return e.rec, nil
	}

	var rec Record
	err := h.client.Do(ctx, api.Request{
		Method:     http.MethodGet,
		Path:       "/signals/{symbol}",
		PathParams: map[string]string{"symbol": key},
	}, &rec)
	if err != nil {
		if errors.Is(err, types.ErrDataUnavailable) {
			return Record{}, missing(symbol, "signals record")
		}
		return Record{}, fmt.Errorf("%w: %s: %w", types.ErrUpstreamSignalMissing, symbol, err)
	}

	h.mu.Lock()
	h.memo[key] = memoEntry{rec: rec, at: h.now()}
	h.mu.Unlock()
	return rec, nil
}
