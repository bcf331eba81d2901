// Package pipeline wires providers, cache, rate limits and analytics into the
// one fetch pipeline shared by the HTTP API and the CLI.
package pipeline

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"marketbridge/internal/aggregate"
	"marketbridge/internal/analytics"
	"marketbridge/internal/catalog"
	"marketbridge/internal/config"
	"marketbridge/internal/httpx"
	"marketbridge/internal/provider"
	"marketbridge/internal/provider/cache"
	"marketbridge/internal/provider/fred"
	"marketbridge/internal/provider/fredadapter"
	"marketbridge/internal/provider/ratelimit"
	"marketbridge/internal/provider/yahoo"
	"marketbridge/internal/series"
)

type Pipeline struct {
	Aggregator *aggregate.Aggregator
	Catalog    catalog.Catalog
	Analytics  config.Analytics
	// FRED is nil when the provider is disabled.
	FRED *fredadapter.Adapter

	now func() time.Time
}

// Build constructs the pipeline described by cfg. cfg is validated first, so a
// hand-built config gets the same checks as one from config.Load.
func Build(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	hc := httpx.New(httpx.Config{Timeout: cfg.HTTP.Timeout(), UserAgent: cfg.HTTP.UserAgent})

	agg := aggregate.New()
	agg.MaxConcurrency = cfg.Aggregate.MaxConcurrency
	agg.Attempts = cfg.Aggregate.Attempts
	agg.Backoff = cfg.Aggregate.Backoff()
	agg.Timeout = cfg.Aggregate.Timeout()
	if cfg.Cache.TTLSeconds > 0 {
		agg.Cache = cache.NewMemory(cfg.Cache.TTL(), cfg.Cache.MaxItems)
	}

	p := &Pipeline{Aggregator: agg, Catalog: catalog.Default(), Analytics: cfg.Analytics}

	if cfg.FRED.Enabled {
		if cfg.FRED.APIKey == "" {
			log.Warn("fred.enabled=true but FRED_API_KEY not set; FRED requests will fail as unauthorized")
		}
		client := fred.New(cfg.FRED.APIKey, fred.WithBaseURL(cfg.FRED.BaseURL), fred.WithHTTPClient(hc))
		p.FRED = fredadapter.New(fredadapter.Config{
			Name:      provider.FRED,
			Units:     fred.Units(cfg.FRED.Units),
			Frequency: fred.Frequency(cfg.FRED.Frequency),
		}, client)
		limit := ratelimit.FromConfig(cfg.FRED.MinRequestIntervalSec, cfg.FRED.MaxRequestsPerMinute, cfg.FRED.Burst)
		agg.Register(ratelimit.Wrap(p.FRED, limit))
	}

	if cfg.Yahoo.Enabled {
		y := yahoo.New(yahoo.Config{
			Name:      provider.Yahoo,
			BaseURL:   cfg.Yahoo.BaseURL,
			Interval:  cfg.Yahoo.Interval,
			Range:     cfg.Yahoo.Range,
			UserAgent: cfg.HTTP.UserAgent,
		}, hc)
		// all operations hit the same host and share one budget
		limit := ratelimit.FromConfig(cfg.Yahoo.MinRequestIntervalSec, cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.Burst)
		for _, op := range []provider.Provider{y, y.OHLC(), y.Recommendations(), y.Profile()} {
			agg.Register(ratelimit.Wrap(op, limit))
		}
	}

	log.WithFields(log.Fields{
		"fred":  cfg.FRED.Enabled,
		"yahoo": cfg.Yahoo.Enabled,
		"cache": cfg.Cache.TTL(),
	}).Info("pipeline ready")
	return p, nil
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// DefaultWindow is the lookback applied when a request names no start date.
func (p *Pipeline) DefaultWindow() series.Window {
	if p.Analytics.LookbackMonths <= 0 {
		return series.Window{}
	}
	return series.LastMonths(p.clock(), p.Analytics.LookbackMonths)
}

// AnalyticsConfig returns the configured window and lag, overridden by any
// positive argument.
func (p *Pipeline) AnalyticsConfig(window, lag int) analytics.Config {
	c := analytics.Config{Window: p.Analytics.Window, Lag: p.Analytics.Lag}
	if window > 0 {
		c.Window = window
	}
	if lag > 0 {
		c.Lag = lag
	}
	return c
}
