package analytics

import (
	"time"

	"github.com/guregu/null/v6"

	"marketbridge/internal/series"
)

// weeklyLookback is how many periods back the weekly delta reaches: with
// daily bars, the sixth-from-last bar is one trading week before the last.
const weeklyLookback = 5

// Config holds the explicit window sizes for a Report.
type Config struct {
	Window int `json:"window" yaml:"window"`
	Lag    int `json:"lag" yaml:"lag"`
}

// Report bundles the derived series for one input.
type Report struct {
	Mean   series.Series `json:"rolling_mean"`
	StdDev series.Series `json:"rolling_std"`
	Change series.Series `json:"percent_change"`
}

// Apply computes the rolling mean and standard deviation over c.Window and
// the percentage change over c.Lag.
func (c Config) Apply(s series.Series) Report {
	return Report{
		Mean:   RollingMean(s, c.Window),
		StdDev: RollingStdDev(s, c.Window),
		Change: PercentChange(s, c.Lag),
	}
}

// Performance summarizes recent moves of a price series. A field is absent
// when the series is too short for it.
type Performance struct {
	Daily        null.Float `json:"daily_change_pct"`
	Weekly       null.Float `json:"weekly_change_pct"`
	WindowToDate null.Float `json:"window_change_pct"`
}

// Summarize computes latest vs previous, latest vs six periods back, and
// latest vs first point in the window.
func Summarize(s series.Series) Performance {
	n := s.Len()
	var p Performance
	if n >= 2 {
		p.Daily = PeriodDelta(s, n-1, n-2)
		p.WindowToDate = PeriodDelta(s, n-1, 0)
	}
	if n >= weeklyLookback+1 {
		p.Weekly = PeriodDelta(s, n-1, n-1-weeklyLookback)
	}
	return p
}

// Latest is the most recent observation and its change vs the previous one.
type Latest struct {
	Date   time.Time  `json:"date"`
	Value  null.Float `json:"value"`
	Change null.Float `json:"change_pct"`
}

// LatestChange returns the last point of s and its percentage change against
// the point before it. ok is false for an empty series.
func LatestChange(s series.Series) (Latest, bool) {
	last, ok := s.Last()
	if !ok {
		return Latest{}, false
	}
	n := s.Len()
	return Latest{Date: last.Time, Value: last.Value, Change: PeriodDelta(s, n-1, n-2)}, true
}
