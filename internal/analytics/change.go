package analytics

import (
	"fmt"
	"math"

	"github.com/guregu/null/v6"

	"marketbridge/internal/series"
)

// PercentChange is (v[i]-v[i-lag])/v[i-lag]*100. Indices before lag, absent
// operands and zero bases are absent.
func PercentChange(s series.Series, lag int) series.Series {
	vals := s.Values()
	out := make([]null.Float, len(vals))
	if lag >= 1 {
		for i := lag; i < len(vals); i++ {
			out[i] = pct(vals[i], vals[i-lag])
		}
	}
	return s.Derive(fmt.Sprintf("%s:pct(%d)", s.Name(), lag), out)
}

// PeriodDelta is (v[a]-v[b])/v[b]*100 for an arbitrary index pair, e.g.
// latest vs previous or latest vs start of window. Out-of-range indices are absent.
func PeriodDelta(s series.Series, a, b int) null.Float {
	if a < 0 || b < 0 || a >= s.Len() || b >= s.Len() {
		return series.Absent()
	}
	return pct(s.At(a).Value, s.At(b).Value)
}

func pct(cur, base null.Float) null.Float {
	if !cur.Valid || !base.Valid || base.Float64 == 0 {
		return series.Absent()
	}
	v := (cur.Float64 - base.Float64) / base.Float64 * 100
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return series.Absent()
	}
	return series.Value(v)
}
