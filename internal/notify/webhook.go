package notify

import (
	"context"
	"fmt"
	"time"

	"watchlist-scanner/internal/api"
	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/types"
)

const DefaultWebhookTimeout = 10 * time.Second

// Webhook POSTs the Action JSON to a single URL, typically an n8n workflow
// trigger. Any non-2xx response is a delivery failure.
type Webhook struct {
	url    string
	client *api.Client
}

var _ interfaces.Sink = (*Webhook)(nil)

func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: webhook url is required", types.ErrConfig)
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{
		url:    url,
		client: api.NewClient(api.WithTimeout(timeout), api.WithLogging(true)),
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Deliver(ctx context.Context, a types.Action) error {
	if err := w.client.PostJSON(ctx, w.url, a, nil); err != nil {
		return fmt.Errorf("%w: webhook: %w", types.ErrDeliveryFailure, err)
	}
	return nil
}
