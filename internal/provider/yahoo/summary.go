package yahoo

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/pkg/errors"

	"marketbridge/internal/provider"
	"marketbridge/internal/series"
)

// RecommendationColumns are the analyst rating buckets, strongest buy first.
var RecommendationColumns = []string{"strongBuy", "buy", "hold", "sell", "strongSell"}

var now = time.Now

type summaryEnvelope struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

// raw is the {"raw": 1.23, "fmt": "1.23"} wrapper quoteSummary uses for numbers.
type raw struct {
	Raw null.Float `json:"raw"`
}

type summaryResult struct {
	RecommendationTrend *struct {
		Trend []struct {
			Period     string  `json:"period"`
			StrongBuy  float64 `json:"strongBuy"`
			Buy        float64 `json:"buy"`
			Hold       float64 `json:"hold"`
			Sell       float64 `json:"sell"`
			StrongSell float64 `json:"strongSell"`
		} `json:"trend"`
	} `json:"recommendationTrend"`
	SummaryDetail *struct {
		TrailingPE                   raw `json:"trailingPE"`
		PriceToSalesTrailing12Months raw `json:"priceToSalesTrailing12Months"`
		DividendYield                raw `json:"dividendYield"`
		Beta                         raw `json:"beta"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		PriceToBook        raw `json:"priceToBook"`
		EnterpriseToEbitda raw `json:"enterpriseToEbitda"`
		ProfitMargins      raw `json:"profitMargins"`
	} `json:"defaultKeyStatistics"`
	FinancialData *struct {
		DebtToEquity     raw `json:"debtToEquity"`
		CurrentRatio     raw `json:"currentRatio"`
		EbitdaMargins    raw `json:"ebitdaMargins"`
		ReturnOnEquity   raw `json:"returnOnEquity"`
		RevenueGrowth    raw `json:"revenueGrowth"`
		EarningsGrowth   raw `json:"earningsGrowth"`
		GrossMargins     raw `json:"grossMargins"`
		OperatingMargins raw `json:"operatingMargins"`
	} `json:"financialData"`
}

func (p *Provider) quoteSummary(ctx context.Context, symbol string, modules ...string) (summaryResult, error) {
	var env summaryEnvelope
	res, err := p.request(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("modules", strings.Join(modules, ",")).
		SetResult(&env).
		SetError(&env).
		Get("/v10/finance/quoteSummary/{symbol}")
	if err := classify(symbol, res, err, env.QuoteSummary.Error); err != nil {
		return summaryResult{}, err
	}
	if len(env.QuoteSummary.Result) == 0 {
		return summaryResult{}, provider.Errorf(provider.NotFound, "no quote summary for %s", symbol)
	}
	return env.QuoteSummary.Result[0], nil
}

// FetchRecommendations returns the analyst recommendation trend as a table with
// one row per month, labeled by the upstream period ("0m", "-1m", ...). The
// Series of the result is empty.
func (p *Provider) FetchRecommendations(ctx context.Context, req provider.Request) provider.Result {
	if err := req.Validate(); err != nil {
		return p.fail(req, "recommendations", err)
	}

	r, err := p.quoteSummary(ctx, req.Symbol, "recommendationTrend")
	if err != nil {
		return p.fail(req, "recommendations", err)
	}

	table := series.Table{Name: req.Symbol, Columns: RecommendationColumns}
	if r.RecommendationTrend != nil {
		month := monthStart(now())
		for _, t := range r.RecommendationTrend.Trend {
			offset, err := periodOffset(t.Period)
			if err != nil {
				return p.fail(req, "recommendations", err)
			}
			table.Rows = append(table.Rows, series.Row{
				Time:  month.AddDate(0, offset, 0),
				Label: t.Period,
				Values: []null.Float{
					series.Value(t.StrongBuy), series.Value(t.Buy), series.Value(t.Hold),
					series.Value(t.Sell), series.Value(t.StrongSell),
				},
			})
		}
	}
	sort.SliceStable(table.Rows, func(i, j int) bool { return table.Rows[i].Time.Before(table.Rows[j].Time) })

	out := provider.Success(req, series.Empty(req.Symbol))
	out.Table = &table
	return out
}

// periodOffset parses a trend period such as "-2m" into a month offset.
func periodOffset(period string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(period, "m"))
	if err != nil || !strings.HasSuffix(period, "m") {
		return 0, errors.Errorf("unrecognized recommendation period %q", period)
	}
	return n, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Profile column names. Columns marked (%) are upstream fractions scaled by 100.
const (
	PERatio         = "PE Ratio"
	PriceToBook     = "Price to Book"
	PriceToSales    = "Price to Sales"
	EVToEBITDA      = "EV/EBITDA"
	DebtToEquity    = "Debt to Equity"
	CurrentRatio    = "Current Ratio"
	EBITDAMargin    = "EBITDA Margin (%)"
	ReturnOnEquity  = "Return on Equity (%)"
	ProfitMargin    = "Profit Margin (%)"
	RevenueGrowth   = "Revenue Growth (%)"
	EPSGrowth       = "EPS Growth (%)"
	DividendYield   = "Dividend Yield (%)"
	Beta            = "Beta"
	GrossMargin     = "Gross Margin (%)"
	OperatingMargin = "Operating Margin (%)"
)

// ProfileColumns lists the profile table columns in display order.
var ProfileColumns = []string{
	PERatio, PriceToBook, PriceToSales, EVToEBITDA, DebtToEquity, CurrentRatio,
	EBITDAMargin, ReturnOnEquity, ProfitMargin, RevenueGrowth, EPSGrowth,
	DividendYield, Beta, GrossMargin, OperatingMargin,
}

// FetchProfile returns valuation ratios, margins and growth figures as a
// one-row table labeled with the symbol. Fields the upstream omits are absent.
func (p *Provider) FetchProfile(ctx context.Context, req provider.Request) provider.Result {
	if err := req.Validate(); err != nil {
		return p.fail(req, "profile", err)
	}

	r, err := p.quoteSummary(ctx, req.Symbol, "summaryDetail", "defaultKeyStatistics", "financialData")
	if err != nil {
		return p.fail(req, "profile", err)
	}

	values := make(map[string]null.Float, len(ProfileColumns))
	if d := r.SummaryDetail; d != nil {
		values[PERatio] = d.TrailingPE.Raw
		values[PriceToSales] = d.PriceToSalesTrailing12Months.Raw
		values[DividendYield] = percent(d.DividendYield.Raw)
		values[Beta] = d.Beta.Raw
	}
	if k := r.DefaultKeyStatistics; k != nil {
		values[PriceToBook] = k.PriceToBook.Raw
		values[EVToEBITDA] = k.EnterpriseToEbitda.Raw
		values[ProfitMargin] = percent(k.ProfitMargins.Raw)
	}
	if f := r.FinancialData; f != nil {
		values[DebtToEquity] = f.DebtToEquity.Raw
		values[CurrentRatio] = f.CurrentRatio.Raw
		values[EBITDAMargin] = percent(f.EbitdaMargins.Raw)
		values[ReturnOnEquity] = percent(f.ReturnOnEquity.Raw)
		values[RevenueGrowth] = percent(f.RevenueGrowth.Raw)
		values[EPSGrowth] = percent(f.EarningsGrowth.Raw)
		values[GrossMargin] = percent(f.GrossMargins.Raw)
		values[OperatingMargin] = percent(f.OperatingMargins.Raw)
	}

	row := series.Row{Time: now().UTC().Truncate(24 * time.Hour), Label: req.Symbol, Values: make([]null.Float, len(ProfileColumns))}
	for i, c := range ProfileColumns {
		row.Values[i] = values[c]
	}

	out := provider.Success(req, series.Empty(req.Symbol))
	out.Table = &series.Table{Name: req.Symbol, Columns: ProfileColumns, Rows: []series.Row{row}}
	return out
}

func percent(v null.Float) null.Float {
	if !v.Valid {
		return v
	}
	return series.Value(v.Float64 * 100)
}
