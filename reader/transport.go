// Package reader holds the HTTP plumbing shared by the upstream clients.
package reader

import (
	"net/http"
	"time"
)

// userAgentTransport wraps an existing RoundTripper and sets a custom
// User-Agent header on all outgoing requests.
type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// NewHTTPClient returns a client that stamps agent on every request.
func NewHTTPClient(agent string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: userAgentTransport{agent: agent, base: http.DefaultTransport},
		Timeout:   timeout,
	}
}
