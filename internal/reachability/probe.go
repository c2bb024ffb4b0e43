package reachability

import (
	"context"
	"net/http"
	"time"
)

// HTTPProbe checks reachability with a HEAD request against a known
// endpoint, typically the remote service's health URL. Any HTTP
// response counts as reachable; only transport failures count as
// offline.
type HTTPProbe struct {
	url    string
	client *http.Client
}

// NewHTTPProbe creates a probe for the given URL.
func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Check implements Probe.
func (p *HTTPProbe) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
