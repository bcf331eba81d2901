package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

var (
	// ErrConflictingDuplicate is returned when one timestamp carries two different values.
	ErrConflictingDuplicate = errors.New("duplicate timestamp with differing values")
	// ErrMissingColumn is returned when a table lacks the designated value column.
	ErrMissingColumn = errors.New("designated value column not found")
)

// Observation is a raw provider data point before ordering and windowing.
type Observation struct {
	Time  time.Time
	Value null.Float
}

// Raw is any provider response shape that can yield observations.
type Raw interface {
	Observations() ([]Observation, error)
}

// Observations is the sparse date->value shape returned by the macro provider.
// Order is arbitrary and a timestamp may repeat.
type Observations []Observation

func (o Observations) Observations() ([]Observation, error) { return o, nil }

// TableColumn selects one value column from a row-oriented table, e.g. Close
// from an OHLC table.
type TableColumn struct {
	Table  Table
	Column string
}

func (tc TableColumn) Observations() ([]Observation, error) {
	idx, ok := tc.Table.Column(tc.Column)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %v", ErrMissingColumn, tc.Column, tc.Table.Columns)
	}
	out := make([]Observation, 0, len(tc.Table.Rows))
	for _, r := range tc.Table.Rows {
		v := Absent()
		if idx < len(r.Values) {
			v = r.Values[idx]
		}
		out = append(out, Observation{Time: r.Time, Value: v})
	}
	return out, nil
}

// Normalize turns a raw provider response into a Series trimmed to w.
// Points are sorted ascending. A repeated timestamp with an identical value
// keeps the first occurrence; a repeated timestamp with a different value is
// rejected with ErrConflictingDuplicate. An empty result is not an error.
func Normalize(name string, raw Raw, w Window) (Series, error) {
	obs, err := raw.Observations()
	if err != nil {
		return Series{}, err
	}

	kept := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if w.Contains(o.Time) {
			kept = append(kept, o)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })

	points := make([]Point, 0, len(kept))
	for _, o := range kept {
		if n := len(points); n > 0 && points[n-1].Time.Equal(o.Time) {
			if !sameValue(points[n-1].Value, o.Value) {
				return Series{}, fmt.Errorf("%w: %s at %s", ErrConflictingDuplicate, name, o.Time.Format(time.DateOnly))
			}
			continue
		}
		points = append(points, Point{Time: o.Time, Value: o.Value})
	}
	return Series{name: name, points: points}, nil
}
