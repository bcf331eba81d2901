package analytics_test

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"marketbridge/internal/analytics"
	"marketbridge/internal/series"
)

// build makes a daily series from values; NaN marks an absent point.
func build(t *testing.T, vs ...float64) series.Series {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]series.Point, len(vs))
	for i, v := range vs {
		val := series.Value(v)
		if math.IsNaN(v) {
			val = series.Absent()
		}
		pts[i] = series.Point{Time: start.AddDate(0, 0, i), Value: val}
	}
	s, err := series.New("T", pts)
	require.NoError(t, err)
	return s
}

func requireAbsent(t *testing.T, v null.Float, msgAndArgs ...any) {
	t.Helper()
	require.False(t, v.Valid, msgAndArgs...)
}

func requireValue(t *testing.T, want float64, v null.Float, msgAndArgs ...any) {
	t.Helper()
	require.True(t, v.Valid, msgAndArgs...)
	require.InDelta(t, want, v.Float64, 1e-9, msgAndArgs...)
}

func TestRollingMean_LengthAndPresence(t *testing.T) {
	t.Parallel()

	s := build(t, 1, 2, 3, 4, 5, 6, 7)
	for w := 1; w <= s.Len(); w++ {
		m := analytics.RollingMean(s, w)
		require.Equal(t, s.Len(), m.Len())
		require.Equal(t, s.Times(), m.Times())
		for i := 0; i < m.Len(); i++ {
			if i < w-1 {
				requireAbsent(t, m.At(i).Value, "w=%d i=%d", w, i)
				continue
			}
			require.True(t, m.At(i).Value.Valid, "w=%d i=%d", w, i)
		}
	}
}

func TestRollingMean_Values(t *testing.T) {
	t.Parallel()

	m := analytics.RollingMean(build(t, 10, 20, 30, 40), 3)

	requireAbsent(t, m.At(0).Value)
	requireAbsent(t, m.At(1).Value)
	requireValue(t, 20, m.At(2).Value)
	requireValue(t, 30, m.At(3).Value)
}

func TestRollingMean_SkipsAbsentInsideWindow(t *testing.T) {
	t.Parallel()

	m := analytics.RollingMean(build(t, 10, math.NaN(), 30, math.NaN(), math.NaN()), 2)

	requireValue(t, 10, m.At(1).Value)
	requireValue(t, 30, m.At(2).Value)
	requireValue(t, 30, m.At(3).Value)
	requireAbsent(t, m.At(4).Value)
}

func TestRollingMean_NonPositiveWindowIsAllAbsent(t *testing.T) {
	t.Parallel()

	m := analytics.RollingMean(build(t, 1, 2), 0)

	require.Equal(t, 2, m.Len())
	for _, v := range m.Values() {
		requireAbsent(t, v)
	}
}

func TestRollingStdDev_WindowTwo(t *testing.T) {
	t.Parallel()

	sd := analytics.RollingStdDev(build(t, 10, 20, 30, 40), 2)
	want := math.Sqrt(50) // sample std dev of any two points 10 apart

	require.Equal(t, 4, sd.Len())
	requireAbsent(t, sd.At(0).Value)
	requireValue(t, want, sd.At(1).Value)
	requireValue(t, want, sd.At(2).Value)
	requireValue(t, want, sd.At(3).Value)
}

func TestRollingStdDev_FewerThanTwoPresentIsAbsent(t *testing.T) {
	t.Parallel()

	sd := analytics.RollingStdDev(build(t, 5, math.NaN(), 7, 9), 2)

	requireAbsent(t, sd.At(1).Value)
	requireAbsent(t, sd.At(2).Value)
	requireValue(t, math.Sqrt(2), sd.At(3).Value)

	one := analytics.RollingStdDev(build(t, 5, 6, 7), 1)
	for _, v := range one.Values() {
		requireAbsent(t, v)
	}
}

func TestPercentChange_AbsenceRules(t *testing.T) {
	t.Parallel()

	// Arrange: index 1 is zero, index 2 is absent
	s := build(t, 100, 0, math.NaN(), 110, 50, 25)

	// Act
	pc := analytics.PercentChange(s, 2)

	// Assert
	require.Equal(t, s.Len(), pc.Len())
	requireAbsent(t, pc.At(0).Value, "index < lag")
	requireAbsent(t, pc.At(1).Value, "index < lag")
	requireAbsent(t, pc.At(2).Value, "current absent")
	requireAbsent(t, pc.At(3).Value, "zero base")
	requireAbsent(t, pc.At(4).Value, "absent base")
	requireValue(t, (25.0-110.0)/110.0*100, pc.At(5).Value)
}

func TestPercentChange_YearOverYear(t *testing.T) {
	t.Parallel()

	vs := make([]float64, 14)
	for i := range vs {
		vs[i] = 100 + float64(i)
	}

	pc := analytics.PercentChange(build(t, vs...), 12)

	for i := 0; i < 12; i++ {
		requireAbsent(t, pc.At(i).Value)
	}
	requireValue(t, 12, pc.At(12).Value)
	requireValue(t, (113.0-101.0)/101.0*100, pc.At(13).Value)
}

func TestPeriodDelta(t *testing.T) {
	t.Parallel()

	s := build(t, 100, 110, 99)

	requireValue(t, -1.0, analytics.PeriodDelta(s, 2, 0))
	requireValue(t, (99.0-110.0)/110.0*100, analytics.PeriodDelta(s, 2, 1))
	requireAbsent(t, analytics.PeriodDelta(s, 3, 0), "out of range")
	requireAbsent(t, analytics.PeriodDelta(s, 2, -1), "negative index")
	requireAbsent(t, analytics.PeriodDelta(build(t, 0, 5), 1, 0), "zero base")
	requireAbsent(t, analytics.PeriodDelta(build(t, math.NaN(), 5), 1, 0), "absent base")
}

func TestConfig_Apply(t *testing.T) {
	t.Parallel()

	s := build(t, 1, 2, 3, 4)

	r := analytics.Config{Window: 2, Lag: 1}.Apply(s)

	require.Equal(t, 4, r.Mean.Len())
	require.Equal(t, 4, r.StdDev.Len())
	require.Equal(t, 4, r.Change.Len())
	requireValue(t, 3.5, r.Mean.At(3).Value)
	requireValue(t, 100, r.Change.At(1).Value)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	// Arrange: six closes, enough for every field
	s := build(t, 50, 60, 70, 80, 90, 100)

	// Act
	p := analytics.Summarize(s)

	// Assert
	requireValue(t, (100.0-90.0)/90.0*100, p.Daily)
	requireValue(t, 100, p.Weekly)
	requireValue(t, 100, p.WindowToDate)
}

func TestSummarize_ShortSeriesLeavesFieldsAbsent(t *testing.T) {
	t.Parallel()

	p := analytics.Summarize(build(t, 10, 11, 12))
	requireValue(t, (12.0-11.0)/11.0*100, p.Daily)
	requireAbsent(t, p.Weekly)
	requireValue(t, 20, p.WindowToDate)

	one := analytics.Summarize(build(t, 10))
	requireAbsent(t, one.Daily)
	requireAbsent(t, one.Weekly)
	requireAbsent(t, one.WindowToDate)
}

func TestLatestChange(t *testing.T) {
	t.Parallel()

	l, ok := analytics.LatestChange(build(t, 4.0, 5.0))
	require.True(t, ok)
	requireValue(t, 5, l.Value)
	requireValue(t, 25, l.Change)

	l, ok = analytics.LatestChange(build(t, 4.0))
	require.True(t, ok)
	requireAbsent(t, l.Change)

	_, ok = analytics.LatestChange(series.Empty("none"))
	require.False(t, ok)
}
