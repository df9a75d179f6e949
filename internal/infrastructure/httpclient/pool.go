// Package httpclient builds the HTTP clients the upstream callers share.
// Both the Dune poller and the share-card renderer hit a single host
// repeatedly, so connection reuse matters more than fan-out here.
package httpclient

import (
	"net/http"
	"time"
)

// userAgent identifies dashboard traffic in upstream access logs.
const userAgent = "ogdrop/0.4"

// New returns a client with keep-alive pooling sized for a steady trickle
// of requests against one host. A zero timeout leaves requests bounded only
// by their context.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &headerTransport{base: transport},
	}
}

// headerTransport stamps a User-Agent on requests that lack one. RoundTrip
// must not mutate the caller's request, so it works on a clone.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(clone)
}
