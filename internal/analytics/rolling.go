// Package analytics derives rolling statistics and percentage changes from a
// series. Every function is pure and returns a new series aligned
// index-for-index with its input; values that cannot be computed are absent.
package analytics

import (
	"fmt"
	"math"

	"github.com/guregu/null/v6"

	"marketbridge/internal/series"
)

// RollingMean is the arithmetic mean of the present values in the trailing
// window ending at each index. Indices before window-1 are absent.
func RollingMean(s series.Series, window int) series.Series {
	vals := s.Values()
	out := make([]null.Float, len(vals))
	if window >= 1 {
		for i := window - 1; i < len(vals); i++ {
			sum, n := 0.0, 0
			for _, v := range vals[i-window+1 : i+1] {
				if v.Valid {
					sum += v.Float64
					n++
				}
			}
			if n > 0 {
				out[i] = series.Value(sum / float64(n))
			}
		}
	}
	return s.Derive(fmt.Sprintf("%s:mean(%d)", s.Name(), window), out)
}

// RollingStdDev is the sample standard deviation (n-1) of the present values
// in the trailing window. A window with fewer than two present values is absent.
func RollingStdDev(s series.Series, window int) series.Series {
	vals := s.Values()
	out := make([]null.Float, len(vals))
	if window >= 1 {
		for i := window - 1; i < len(vals); i++ {
			out[i] = sampleStdDev(vals[i-window+1 : i+1])
		}
	}
	return s.Derive(fmt.Sprintf("%s:std(%d)", s.Name(), window), out)
}

func sampleStdDev(vals []null.Float) null.Float {
	sum, n := 0.0, 0
	for _, v := range vals {
		if v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n < 2 {
		return series.Absent()
	}
	mean := sum / float64(n)
	sq := 0.0
	for _, v := range vals {
		if v.Valid {
			d := v.Float64 - mean
			sq += d * d
		}
	}
	return series.Value(math.Sqrt(sq / float64(n-1)))
}
