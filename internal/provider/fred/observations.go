package fred

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Observation is one dated value of a FRED series. FRED marks a missing
// value with "."; such observations carry an invalid Value.
type Observation struct {
	Date  time.Time
	Value decimal.NullDecimal
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// GetSeriesObservations retrieves the observations of seriesID between start
// and end. Zero dates leave that bound to the API default.
func (c *Client) GetSeriesObservations(ctx context.Context, seriesID string, start, end time.Time, opts ...Option) ([]Observation, error) {
	override := c.with(opts)

	query := override.query
	query.Set("series_id", seriesID)
	if !start.IsZero() {
		query.Set("observation_start", start.Format(time.DateOnly))
	}
	if !end.IsZero() {
		query.Set("observation_end", end.Format(time.DateOnly))
	}

	var body observationsResponse
	if err := override.get(ctx, "/fred/series/observations", query, &body); err != nil {
		return nil, err
	}

	out := make([]Observation, 0, len(body.Observations))
	for _, o := range body.Observations {
		date, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return nil, fmt.Errorf("decoding date %q: %w", o.Date, err)
		}
		var value decimal.NullDecimal
		if v := strings.TrimSpace(o.Value); v != "" && v != "." {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("decoding value %q on %s: %w", o.Value, o.Date, err)
			}
			value = decimal.NewNullDecimal(d)
		}
		out = append(out, Observation{Date: date, Value: value})
	}
	return out, nil
}

// SeriesInfo is the descriptive metadata of a series.
type SeriesInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Frequency   string `json:"frequency"`
	Units       string `json:"units"`
	LastUpdated string `json:"last_updated"`
	Notes       string `json:"notes"`
}

// GetSeries retrieves the metadata of seriesID.
func (c *Client) GetSeries(ctx context.Context, seriesID string, opts ...Option) (*SeriesInfo, error) {
	override := c.with(opts)

	query := override.query
	query.Set("series_id", seriesID)
	// transforms apply to observations only
	query.Del("units")
	query.Del("frequency")

	var body struct {
		Seriess []SeriesInfo `json:"seriess"`
	}
	if err := override.get(ctx, "/fred/series", query, &body); err != nil {
		return nil, err
	}
	if len(body.Seriess) == 0 {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("series %s does not exist", seriesID)}
	}
	return &body.Seriess[0], nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query.Get("api_key") == "" {
		return ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: res.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		_ = json.Unmarshal(b, apiErr)
		apiErr.StatusCode = res.StatusCode
		return apiErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
