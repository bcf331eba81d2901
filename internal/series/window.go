package series

import "time"

// now is replaced in tests.
var now = time.Now

// Window bounds a series in time, inclusive on both ends. A zero Start is
// unbounded; a zero End means "now".
type Window struct {
	Start time.Time
	End   time.Time
}

// Since returns a window from start until now.
func Since(start time.Time) Window { return Window{Start: start} }

// LastMonths returns the window covering the n months before the calendar
// date of at. Both bounds are whole UTC dates so the window is stable for a day.
func LastMonths(at time.Time, n int) Window {
	d := Date(at)
	return Window{Start: d.AddDate(0, -n, 0), End: d}
}

// Date truncates t to midnight UTC of its calendar date.
func Date(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func (w Window) end() time.Time {
	if w.End.IsZero() {
		return now()
	}
	return w.End
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	return !t.After(w.end())
}
