package pipeline

import (
	"context"
	"strings"

	"marketbridge/internal/aggregate"
	"marketbridge/internal/analytics"
	"marketbridge/internal/catalog"
	"marketbridge/internal/provider"
	"marketbridge/internal/provider/yahoo"
)

// SeriesReport is one fetched series with its derived analytics. The
// analytics fields are nil when the fetch failed.
type SeriesReport struct {
	Item    *catalog.Item          `json:"item,omitempty"`
	Result  provider.Result        `json:"result"`
	Report  *analytics.Report      `json:"analytics,omitempty"`
	Summary *analytics.Performance `json:"summary,omitempty"`
	Latest  *analytics.Latest      `json:"latest,omitempty"`
}

// Resolve upper-cases the symbol, fills in a missing provider from the catalog,
// defaulting to FRED, and applies the default window when req has no start date.
func (p *Pipeline) Resolve(req provider.Request) provider.Request {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Provider == "" {
		req.Provider = provider.FRED
		if it, ok := p.Catalog.Lookup(req.Symbol); ok {
			req.Provider, req.Symbol = it.Provider, it.ID
		}
	}
	if req.Start.IsZero() {
		w := p.DefaultWindow()
		req.Start = w.Start
	}
	return req
}

// Series fetches one series and applies ac to it.
func (p *Pipeline) Series(ctx context.Context, req provider.Request, ac analytics.Config) SeriesReport {
	req = p.Resolve(req)
	out := SeriesReport{Result: p.Aggregator.Fetch(ctx, req)}
	if it, ok := p.Catalog.Lookup(req.Symbol); ok {
		out.Item = &it
	}
	if !out.Result.OK() {
		return out
	}

	s := out.Result.Series
	report := ac.Apply(s)
	summary := analytics.Summarize(s)
	out.Report, out.Summary = &report, &summary
	if latest, ok := analytics.LatestChange(s); ok {
		out.Latest = &latest
	}
	return out
}

// OverviewItem is the headline figure for one overview indicator.
type OverviewItem struct {
	catalog.Item
	Latest *analytics.Latest `json:"latest,omitempty"`
	Error  *provider.Error   `json:"error,omitempty"`
}

// Overview is the at-a-glance page: latest indicator moves plus index bars.
type Overview struct {
	Indicators []OverviewItem        `json:"indicators"`
	Indices    aggregate.MultiResult `json:"indices"`
}

// Overview fetches the overview indicators and the index OHLC tables from base.Start.
func (p *Pipeline) Overview(ctx context.Context, base provider.Request) Overview {
	items := p.Catalog.Overview
	indicators := p.Aggregator.FetchMany(ctx, catalog.Requests(items, base))

	out := Overview{Indicators: make([]OverviewItem, 0, len(items))}
	for _, it := range items {
		oi := OverviewItem{Item: it}
		e, ok := indicators.Get(it.ID)
		switch {
		case !ok:
		case e.Result.OK():
			if latest, ok := analytics.LatestChange(e.Result.Series); ok {
				oi.Latest = &latest
			}
		default:
			oi.Error = e.Result.Err
		}
		out.Indicators = append(out.Indicators, oi)
	}

	reqs := catalog.Requests(p.Catalog.Indices, base)
	for i := range reqs {
		reqs[i].Provider = yahoo.OHLCName
	}
	out.Indices = p.Aggregator.FetchMany(ctx, reqs)
	return out
}

// SectorPerformance is one row of the sector heatmap.
type SectorPerformance struct {
	ETF         string                 `json:"etf"`
	Performance *analytics.Performance `json:"performance,omitempty"`
	Error       *provider.Error        `json:"error,omitempty"`
}

// Sectors summarizes daily, weekly and window-to-date moves of every sector ETF.
func (p *Pipeline) Sectors(ctx context.Context, base provider.Request) []SectorPerformance {
	etfs := p.Catalog.SectorETFs()
	reqs := make([]provider.Request, 0, len(etfs))
	for _, etf := range etfs {
		r := base
		r.Provider, r.Symbol = provider.Yahoo, etf
		reqs = append(reqs, r)
	}

	res := p.Aggregator.FetchMany(ctx, reqs)
	out := make([]SectorPerformance, 0, len(res.Entries))
	for _, e := range res.Entries {
		sp := SectorPerformance{ETF: e.Symbol}
		if e.Result.OK() {
			perf := analytics.Summarize(e.Result.Series)
			sp.Performance = &perf
		} else {
			sp.Error = e.Result.Err
		}
		out = append(out, sp)
	}
	return out
}

// SectorDetail holds the ETF price series and its driving indicators.
type SectorDetail struct {
	ETF        string                `json:"etf"`
	Price      provider.Result       `json:"price"`
	Indicators aggregate.MultiResult `json:"indicators"`
}

// Sector fetches the detail page of one sector. ok is false for an unknown ETF.
func (p *Pipeline) Sector(ctx context.Context, etf string, base provider.Request) (SectorDetail, bool) {
	s, ok := p.Catalog.Sector(etf)
	if !ok {
		return SectorDetail{}, false
	}
	price := base
	price.Provider, price.Symbol = provider.Yahoo, s.ETF

	return SectorDetail{
		ETF:        s.ETF,
		Price:      p.Aggregator.Fetch(ctx, price),
		Indicators: p.Aggregator.FetchMany(ctx, catalog.Requests(s.Indicators, base)),
	}, true
}

// Tables fetches a table-shaped operation for every symbol and merges the
// per-symbol tables. Failed symbols are reported alongside.
func (p *Pipeline) Tables(ctx context.Context, op string, symbols []string) (aggregate.MergedTable, []aggregate.Entry) {
	reqs := make([]provider.Request, 0, len(symbols))
	for _, s := range symbols {
		reqs = append(reqs, provider.Request{Provider: op, Symbol: strings.ToUpper(strings.TrimSpace(s))})
	}
	res := p.Aggregator.FetchMany(ctx, reqs)
	return res.MergeTables(), res.Failures()
}
