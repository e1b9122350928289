package zerodha

import (
	"fmt"
	"net/http"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"watchlist-scanner/internal/types"
)

// New builds a Kite Connect backed adapter. Missing credentials are a
// configuration error.
func New(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, fmt.Errorf("%w: zerodha requires KITE_API_KEY and KITE_ACCESS_TOKEN", types.ErrConfig)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	kc.SetHTTPClient(&http.Client{Timeout: timeout})
	return newZerodha(kc, p), nil
}
