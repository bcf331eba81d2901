// Package series holds the canonical time-series shape shared by every
// provider adapter, the analytics functions and the aggregator.
//
// A Series is an ordered run of points with strictly increasing timestamps.
// A point whose value is not valid is an explicit absence: the observation
// exists in time but carries no usable number.
package series

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/guregu/null/v6"
)

// ErrNotIncreasing is returned when points are not strictly increasing in time.
var ErrNotIncreasing = errors.New("timestamps must be strictly increasing")

// Point is a single observation.
type Point struct {
	Time  time.Time  `json:"date"`
	Value null.Float `json:"value"`
}

// Absent returns the absence marker.
func Absent() null.Float { return null.Float{} }

// Value wraps a present number.
func Value(v float64) null.Float { return null.FloatFrom(v) }

// Series is immutable once constructed; derived series are new values.
type Series struct {
	name   string
	points []Point
}

// New validates ordering and copies points into a new Series.
func New(name string, points []Point) (Series, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Time.After(points[i-1].Time) {
			return Series{}, fmt.Errorf("%w: index %d at %s", ErrNotIncreasing, i, points[i].Time.Format(time.RFC3339))
		}
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return Series{name: name, points: cp}, nil
}

// Empty returns a named series with no points.
func Empty(name string) Series { return Series{name: name} }

func (s Series) Name() string  { return s.name }
func (s Series) Len() int      { return len(s.points) }
func (s Series) IsEmpty() bool { return len(s.points) == 0 }

// At returns the i-th point. It panics on an out-of-range index like a slice would.
func (s Series) At(i int) Point { return s.points[i] }

// Points returns a copy of the underlying points.
func (s Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns a copy of the values in order.
func (s Series) Values() []null.Float {
	out := make([]null.Float, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Times returns a copy of the timestamps in order.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Time
	}
	return out
}

// First returns the earliest point, if any.
func (s Series) First() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[0], true
}

// Last returns the latest point, if any.
func (s Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Rename returns the same points under a different name.
func (s Series) Rename(name string) Series {
	return Series{name: name, points: s.points}
}

// Derive returns a new series aligned index-for-index with s, carrying values.
// values must have the same length as s.
func (s Series) Derive(name string, values []null.Float) Series {
	if len(values) != len(s.points) {
		panic(fmt.Sprintf("series: derive %q with %d values for %d points", name, len(values), len(s.points)))
	}
	out := make([]Point, len(s.points))
	for i, p := range s.points {
		out[i] = Point{Time: p.Time, Value: values[i]}
	}
	return Series{name: name, points: out}
}

type wireSeries struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

func (s Series) MarshalJSON() ([]byte, error) {
	pts := s.points
	if pts == nil {
		pts = []Point{}
	}
	return json.Marshal(wireSeries{Name: s.name, Points: pts})
}

func (s *Series) UnmarshalJSON(b []byte) error {
	var w wireSeries
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := New(w.Name, w.Points)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// sameValue reports whether two values are identical, treating two absences as equal.
func sameValue(a, b null.Float) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Float64 == b.Float64
}
