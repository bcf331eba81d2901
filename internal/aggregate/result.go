package aggregate

import (
	"time"

	"github.com/guregu/null/v6"

	"marketbridge/internal/analytics"
	"marketbridge/internal/provider"
	"marketbridge/internal/series"
)

// Entry is the outcome for one requested symbol.
type Entry struct {
	Symbol  string                 `json:"symbol"`
	Result  provider.Result        `json:"result"`
	Summary *analytics.Performance `json:"summary,omitempty"`
}

// MultiResult holds FetchMany entries in request order.
type MultiResult struct {
	Entries []Entry `json:"entries"`
}

// Get returns the entry for symbol.
func (m MultiResult) Get(symbol string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return Entry{}, false
}

// Symbols lists entry symbols in order.
func (m MultiResult) Symbols() []string {
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Symbol)
	}
	return out
}

// Failures returns the failed entries in order.
func (m MultiResult) Failures() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if !e.Result.OK() {
			out = append(out, e)
		}
	}
	return out
}

// LongRow is one (symbol, date, value) observation of a merged result.
type LongRow struct {
	Symbol string     `json:"symbol"`
	Date   time.Time  `json:"date"`
	Value  null.Float `json:"value"`
}

// LongForm merges the series of all successful entries into rows ordered by
// entry, then date. Absent points are kept.
func (m MultiResult) LongForm() []LongRow {
	var out []LongRow
	for _, e := range m.Entries {
		if !e.Result.OK() {
			continue
		}
		for _, p := range e.Result.Series.Points() {
			out = append(out, LongRow{Symbol: e.Symbol, Date: p.Time, Value: p.Value})
		}
	}
	return out
}

// TableRow is a table row tagged with the symbol it came from.
type TableRow struct {
	Symbol string `json:"symbol"`
	series.Row
}

// MergedTable concatenates the per-symbol tables of a MultiResult.
type MergedTable struct {
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// MergeTables concatenates the tables of successful entries in entry order.
// Columns follow the first table; cells are matched by column name and are
// absent where a table lacks the column.
func (m MultiResult) MergeTables() MergedTable {
	var out MergedTable
	for _, e := range m.Entries {
		t := e.Result.Table
		if !e.Result.OK() || t == nil {
			continue
		}
		if out.Columns == nil {
			out.Columns = append([]string(nil), t.Columns...)
		}
		idx := make([]int, len(out.Columns))
		for i, c := range out.Columns {
			j, ok := t.Column(c)
			if !ok {
				j = -1
			}
			idx[i] = j
		}
		for _, r := range t.Rows {
			values := make([]null.Float, len(out.Columns))
			for i, j := range idx {
				if j >= 0 && j < len(r.Values) {
					values[i] = r.Values[j]
				}
			}
			out.Rows = append(out.Rows, TableRow{
				Symbol: e.Symbol,
				Row:    series.Row{Time: r.Time, Label: r.Label, Values: values},
			})
		}
	}
	return out
}

// SymbolTotal is the column-wise sum of one symbol's rows.
type SymbolTotal struct {
	Symbol string       `json:"symbol"`
	Values []null.Float `json:"values"`
}

// Totals sums each column per symbol, skipping absent cells, in the order
// symbols first appear. A column with no present cell stays absent.
func (t MergedTable) Totals() []SymbolTotal {
	var out []SymbolTotal
	pos := make(map[string]int)
	for _, r := range t.Rows {
		i, ok := pos[r.Symbol]
		if !ok {
			i = len(out)
			pos[r.Symbol] = i
			out = append(out, SymbolTotal{Symbol: r.Symbol, Values: make([]null.Float, len(t.Columns))})
		}
		for c, v := range r.Values {
			if c >= len(t.Columns) || !v.Valid {
				continue
			}
			out[i].Values[c] = null.FloatFrom(out[i].Values[c].Float64 + v.Float64)
		}
	}
	return out
}
