package yahoo

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"github.com/pkg/errors"

	"marketbridge/internal/provider"
	"marketbridge/internal/series"
)

// OHLC column names. Close is the column Fetch selects.
const (
	Open     = "Open"
	High     = "High"
	Low      = "Low"
	Close    = "Close"
	AdjClose = "Adj Close"
	Volume   = "Volume"
)

var ohlcColumns = []string{Open, High, Low, Close, AdjClose, Volume}

type chartEnvelope struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []null.Float `json:"open"`
			High   []null.Float `json:"high"`
			Low    []null.Float `json:"low"`
			Close  []null.Float `json:"close"`
			Volume []null.Float `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []null.Float `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// Fetch returns the daily closing price series for req.Symbol.
func (p *Provider) Fetch(ctx context.Context, req provider.Request) provider.Result {
	res := p.FetchOHLC(ctx, req)
	res.Table = nil
	return res
}

// FetchOHLC returns the bar table for req.Symbol with Close selected as the series.
func (p *Provider) FetchOHLC(ctx context.Context, req provider.Request) provider.Result {
	if err := req.Validate(); err != nil {
		return p.fail(req, "chart", err)
	}

	table, err := p.chart(ctx, req)
	if err != nil {
		return p.fail(req, "chart", err)
	}

	s, err := series.Normalize(req.Symbol, series.TableColumn{Table: table, Column: Close}, req.Window())
	if err != nil {
		return p.fail(req, "chart", errors.Wrapf(err, "normalizing %s", req.Symbol))
	}

	w := req.Window()
	rows := make([]series.Row, 0, len(table.Rows))
	for _, r := range table.Rows {
		if w.Contains(r.Time) {
			rows = append(rows, r)
		}
	}
	table.Rows = rows

	out := provider.Success(req, s)
	out.Table = &table
	return out
}

func (p *Provider) chart(ctx context.Context, req provider.Request) (series.Table, error) {
	params := map[string]string{
		"interval":       p.cfg.Interval,
		"includePrePost": "false",
		"events":         "div,splits",
	}
	if req.Start.IsZero() {
		params["range"] = p.cfg.Range
	} else {
		end := req.End
		if end.IsZero() {
			end = time.Now()
		}
		params["period1"] = strconv.FormatInt(req.Start.Unix(), 10)
		// period2 is exclusive upstream; extend by a day to keep the end date.
		params["period2"] = strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)
	}

	var env chartEnvelope
	res, err := p.request(ctx).
		SetPathParam("symbol", req.Symbol).
		SetQueryParams(params).
		SetResult(&env).
		SetError(&env).
		Get("/v8/finance/chart/{symbol}")
	if err := classify(req.Symbol, res, err, env.Chart.Error); err != nil {
		return series.Table{}, err
	}
	if len(env.Chart.Result) == 0 {
		return series.Table{}, provider.Errorf(provider.NotFound, "no chart data for %s", req.Symbol)
	}

	return toTable(req.Symbol, env.Chart.Result[0])
}

func toTable(symbol string, r chartResult) (series.Table, error) {
	table := series.Table{Name: symbol, Columns: ohlcColumns}
	if len(r.Timestamp) == 0 {
		return table, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return table, errors.Errorf("chart for %s has timestamps but no quote indicators", symbol)
	}

	q := r.Indicators.Quote[0]
	var adj []null.Float
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	idx := make([]int, len(r.Timestamp))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return r.Timestamp[idx[a]] < r.Timestamp[idx[b]] })

	// A live intraday bar can share its date with the daily bar; the latest one wins.
	table.Rows = make([]series.Row, 0, len(idx))
	for _, i := range idx {
		row := series.Row{
			Time: day(r.Timestamp[i], r.Meta.GMTOffset),
			Values: []null.Float{
				at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i), at(adj, i), at(q.Volume, i),
			},
		}
		if n := len(table.Rows); n > 0 && table.Rows[n-1].Time.Equal(row.Time) {
			table.Rows[n-1] = row
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func at(vs []null.Float, i int) null.Float {
	if i < len(vs) {
		return vs[i]
	}
	return series.Absent()
}
