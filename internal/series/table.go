package series

import (
	"time"

	"github.com/guregu/null/v6"
)

// Row is one record of a Table. Label carries a non-temporal key such as a
// rating period ("0m") or the symbol a merged row belongs to.
type Row struct {
	Time   time.Time    `json:"date"`
	Label  string       `json:"label,omitempty"`
	Values []null.Float `json:"values"`
}

// Table is a labeled multi-column record: OHLC bars, analyst rating counts,
// profile ratios.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Column returns the index of the named column.
func (t Table) Column(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

func (t Table) Len() int { return len(t.Rows) }

// Sum adds up each column over all rows, skipping absent cells. A column
// with no present cell sums to an absence.
func (t Table) Sum() []null.Float {
	out := make([]null.Float, len(t.Columns))
	for _, r := range t.Rows {
		for i := range t.Columns {
			if i >= len(r.Values) || !r.Values[i].Valid {
				continue
			}
			out[i] = null.FloatFrom(out[i].Float64 + r.Values[i].Float64)
		}
	}
	return out
}
