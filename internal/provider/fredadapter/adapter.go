package fredadapter

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"marketbridge/internal/provider"
	"marketbridge/internal/provider/fred"
	"marketbridge/internal/series"
)

type Config struct {
	Name string // display name, default: fred
	// Units and Frequency are applied to every observations request; empty
	// keeps FRED's native levels and frequency.
	Units     fred.Units
	Frequency fred.Frequency
}

// Adapter serves macro indicator series from FRED.
type Adapter struct {
	cfg    Config
	client *fred.Client
}

func New(cfg Config, client *fred.Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = provider.FRED
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Fetch retrieves req.Symbol as a FRED series id. Missing observations ("."
// upstream) become absent points.
func (a *Adapter) Fetch(ctx context.Context, req provider.Request) provider.Result {
	if err := req.Validate(); err != nil {
		return provider.Failure(req, err)
	}
	if !a.client.HasKey() {
		return provider.Failure(req, provider.Errorf(provider.Unauthorized, "FRED api key is not configured"))
	}

	obs, err := a.client.GetSeriesObservations(ctx, req.Symbol, req.Start, req.End,
		fred.WithUnits(a.cfg.Units), fred.WithFrequency(a.cfg.Frequency))
	if err != nil {
		log.WithFields(log.Fields{"provider": a.cfg.Name, "symbol": req.Symbol}).WithError(err).Debug("observations request failed")
		return provider.Failure(req, &provider.Error{Kind: fred.Classify(err), Err: err})
	}

	raw := make(series.Observations, 0, len(obs))
	for _, o := range obs {
		v := series.Absent()
		if o.Value.Valid {
			v = series.Value(o.Value.Decimal.InexactFloat64())
		}
		raw = append(raw, series.Observation{Time: o.Date, Value: v})
	}

	s, err := series.Normalize(req.Symbol, raw, req.Window())
	if err != nil {
		return provider.Failure(req, fmt.Errorf("normalizing %s: %w", req.Symbol, err))
	}
	return provider.Success(req, s)
}

// Describe returns the title, units and frequency FRED publishes for id.
func (a *Adapter) Describe(ctx context.Context, id string) (*fred.SeriesInfo, error) {
	if !a.client.HasKey() {
		return nil, provider.Errorf(provider.Unauthorized, "FRED api key is not configured")
	}
	info, err := a.client.GetSeries(ctx, id)
	if err != nil {
		return nil, &provider.Error{Kind: fred.Classify(err), Symbol: id, Err: err}
	}
	return info, nil
}
