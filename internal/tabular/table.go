// =============================================================================
// Fish Reports - Tabular Data Model
// =============================================================================
//
// This package provides the two spreadsheet capabilities the pipeline is
// built on:
//   - Table: a loaded two-dimensional labeled dataset supporting column
//     selection, filtering and groupby-aggregate (see table.go)
//   - Load/Save: reading a grid of rows from CSV or XLSX files and writing
//     a grid back out (see load.go)
//
// Cells are kept as display strings, exactly as excelize returns them from
// GetRows. Numeric interpretation happens at the point of use via
// ParseNumber, so non-numeric junk in a numeric column is detected by the
// caller instead of being silently zeroed.
//
// =============================================================================

package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Row is one record keyed by column header.
type Row map[string]string

// Table is an ordered set of labeled rows. Headers preserves the column
// order of the source file; Rows preserves row order.
type Table struct {
	Headers []string
	Rows    []Row
}

// ErrMissingColumns is wrapped by operations that require columns absent
// from the table.
var ErrMissingColumns = errors.New("required columns missing")

// =============================================================================
// COLUMN OPERATIONS
// =============================================================================

// HasColumn reports whether the table carries the given header.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the subset of names not present in the table,
// in the order given.
func (t *Table) MissingColumns(names []string) []string {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Select returns a new table restricted to the named columns, in the given
// order. All named columns must exist.
func (t *Table) Select(names []string) (*Table, error) {
	if missing := t.MissingColumns(names); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	out := &Table{Headers: append([]string(nil), names...)}
	for _, row := range t.Rows {
		selected := make(Row, len(names))
		for _, n := range names {
			selected[n] = row[n]
		}
		out.Rows = append(out.Rows, selected)
	}
	return out, nil
}

// =============================================================================
// FILTERING
// =============================================================================

// Filter returns a new table containing only the rows for which keep
// returns true, plus the number of rows removed.
func (t *Table) Filter(keep func(Row) bool) (*Table, int) {
	out := &Table{Headers: append([]string(nil), t.Headers...)}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, len(t.Rows) - len(out.Rows)
}

// Apply returns a new table with fn applied to every row. fn receives a
// copy and returns the replacement row; headers are unchanged.
func (t *Table) Apply(fn func(Row) Row) *Table {
	out := &Table{Headers: append([]string(nil), t.Headers...)}
	for _, row := range t.Rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out.Rows = append(out.Rows, fn(copied))
	}
	return out
}

// =============================================================================
// GROUPING
// =============================================================================

// GroupBy groups rows by the combined value of the key columns. Columns
// listed in sumCols are aggregated as numeric sums; every other column
// resolves to the first value seen within the group. Group output order is
// first-appearance order, so repeated runs over the same input produce the
// same table.
func (t *Table) GroupBy(keys []string, sumCols []string) (*Table, error) {
	required := append(append([]string(nil), keys...), sumCols...)
	if missing := t.MissingColumns(required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	sums := make(map[string]bool, len(sumCols))
	for _, c := range sumCols {
		sums[c] = true
	}

	type group struct {
		first Row
		total map[string]float64
	}

	var order []string
	groups := make(map[string]*group)

	for _, row := range t.Rows {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = row[k]
		}
		id := strings.Join(parts, "\x1f")

		g, ok := groups[id]
		if !ok {
			g = &group{first: row, total: make(map[string]float64)}
			groups[id] = g
			order = append(order, id)
		}
		for _, c := range sumCols {
			if v, numeric := ParseNumber(row[c]); numeric {
				g.total[c] += v
			}
		}
	}

	out := &Table{Headers: append([]string(nil), t.Headers...)}
	for _, id := range order {
		g := groups[id]
		merged := make(Row, len(g.first))
		for _, h := range t.Headers {
			if sums[h] {
				merged[h] = FormatNumber(g.total[h])
			} else {
				merged[h] = g.first[h]
			}
		}
		out.Rows = append(out.Rows, merged)
	}
	return out, nil
}

// =============================================================================
// NUMERIC HELPERS
// =============================================================================

// ParseNumber interprets a cell as a number. It tolerates surrounding
// whitespace and thousands separators. The second result is false for
// empty or non-numeric cells.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatNumber renders a float the way spreadsheets display it: no
// exponent, trailing fractional zeros trimmed, integers without a point.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}
