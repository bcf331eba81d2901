// Package yahoo serves equity and index market data from the Yahoo Finance
// chart and quoteSummary endpoints.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"marketbridge/internal/provider"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

type Config struct {
	Name      string // display name, default: yahoo
	BaseURL   string // default: https://query1.finance.yahoo.com
	Interval  string // bar interval, default: 1d
	Range     string // range used when a request has no start date, default: 5y
	UserAgent string
}

// Provider implements provider.Provider over the Yahoo Finance API. Fetch
// returns closing prices; FetchOHLC, FetchRecommendations and FetchProfile
// expose the richer shapes the same endpoints carry.
type Provider struct {
	cfg    Config
	client *resty.Client
}

// New builds a Provider. httpClient may be nil, in which case resty's default
// transport is used.
func New(cfg Config, httpClient *http.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = provider.Yahoo
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	if cfg.Range == "" {
		cfg.Range = "5y"
	}

	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Provider{cfg: cfg, client: rc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) request(ctx context.Context) *resty.Request {
	return p.client.R().SetContext(ctx)
}

// apiError is the error object both endpoints embed in their envelope.
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// classify maps a resty round trip onto the failure taxonomy. A nil return
// means the response is a 2xx.
func classify(symbol string, res *resty.Response, err error, body *apiError) error {
	if err != nil {
		return errors.Wrapf(err, "requesting %s", symbol)
	}
	if res.IsSuccess() && body == nil {
		return nil
	}

	status := res.StatusCode()
	msg := fmt.Sprintf("unexpected status code: %d", status)
	if body != nil {
		msg = fmt.Sprintf("%s: %s", body.Code, body.Description)
		if strings.EqualFold(body.Code, "Not Found") {
			return provider.Errorf(provider.NotFound, "%s", msg)
		}
	}
	kind := provider.StatusKind(status)
	if res.IsSuccess() {
		kind = provider.Unknown
	}
	return provider.Errorf(kind, "%s", msg)
}

func (p *Provider) fail(req provider.Request, op string, err error) provider.Result {
	res := provider.Failure(req, err)
	log.WithFields(log.Fields{
		"provider": p.cfg.Name,
		"symbol":   req.Symbol,
		"op":       op,
		"kind":     res.Err.Kind,
	}).Debug(res.Err.Message)
	return res
}

// day truncates a bar timestamp to its calendar date in the exchange's zone.
func day(unix, gmtOffset int64) time.Time {
	return time.Unix(unix+gmtOffset, 0).UTC().Truncate(24 * time.Hour)
}
