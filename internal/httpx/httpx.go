// Package httpx builds the outbound HTTP client shared by the FRED and Yahoo
// providers. Both the plain FRED client and resty go through the same
// transport, so default headers and connection limits apply to every upstream.
package httpx

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when no other User-Agent is configured.
const DefaultUserAgent = "marketbridge/1.0"

// Config tunes the shared client. Zero values fall back to defaults.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Header    http.Header
	// MaxConnsPerHost caps parallel connections to one upstream host.
	MaxConnsPerHost int
}

// New returns an *http.Client whose transport fills in cfg's default headers.
func New(cfg Config) *http.Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 16
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	header := cfg.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", cfg.UserAgent)
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: &Transport{Base: base, Header: header}}
}

// Transport adds Header entries a request does not already carry.
type Transport struct {
	Base   http.RoundTripper
	Header http.Header
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var missing bool
	for k := range t.Header {
		if req.Header.Get(k) == "" {
			missing = true
			break
		}
	}
	if missing {
		// a RoundTripper must not modify the caller's request
		req = req.Clone(req.Context())
		for k, vs := range t.Header {
			if req.Header.Get(k) == "" {
				req.Header[k] = append([]string(nil), vs...)
			}
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
