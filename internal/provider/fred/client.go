package fred

import (
	"maps"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the public FRED API host.
const DefaultBaseURL = "https://api.stlouisfed.org"

// Units selects the transformation FRED applies to observation values.
type Units string

const (
	Levels                   Units = "lin"
	Change                   Units = "chg"
	ChangeFromYearAgo        Units = "ch1"
	PercentChange            Units = "pch"
	PercentChangeFromYearAgo Units = "pc1"
	NaturalLog               Units = "log"
)

// Frequency selects the aggregation period FRED resamples observations to.
// It can only lower the native frequency of a series.
type Frequency string

const (
	Daily     Frequency = "d"
	Weekly    Frequency = "w"
	Monthly   Frequency = "m"
	Quarterly Frequency = "q"
	Annual    Frequency = "a"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=fred_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the FRED series endpoints. FRED authenticates with the
// api_key query parameter and answers JSON only when asked with file_type.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
	query      url.Values
}

// Option configures a Client, or a single call when passed to a request method.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithHeader adds headers sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithUnits asks FRED to transform values, e.g. PercentChangeFromYearAgo
// turns an index level into a year-over-year rate. Empty keeps levels.
func WithUnits(u Units) Option {
	return func(c *Client) { setQuery(c, "units", string(u)) }
}

// WithFrequency asks FRED to resample observations, averaging within a period.
// Empty keeps the native frequency.
func WithFrequency(f Frequency) Option {
	return func(c *Client) { setQuery(c, "frequency", string(f)) }
}

func setQuery(c *Client, key, value string) {
	if value == "" {
		c.query.Del(key)
		return
	}
	c.query.Set(key, value)
}

// New creates a FRED client. An empty key is accepted here; requests made
// without one fail with ErrMissingAPIKey before touching the network.
func New(key string, options ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{"file_type": {"json"}},
	}
	if key != "" {
		// https://fred.stlouisfed.org/docs/api/api_key.html
		c.query.Set("api_key", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// HasKey reports whether the client carries an API key.
func (c *Client) HasKey() bool { return c.query.Get("api_key") != "" }

// with returns a copy of c with per-call options applied; c is left untouched.
func (c *Client) with(opts []Option) *Client {
	out := &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      maps.Clone(c.query),
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}
