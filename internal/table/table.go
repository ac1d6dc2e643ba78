package table

import (
	"fmt"
	"sort"
	"strings"
)

// Missing is the canonical representation of an absent cell. CSV ingestion
// stores every cell as text; cleaning stages that coerce a value and fail
// write Missing back rather than erroring.
const Missing = ""

// Table is an immutable column-oriented table of string cells. Every
// transformation returns a new Table; the backing slices of an existing
// Table are never written to after construction.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// New builds a Table from a header and rows. Rows shorter than the header
// are padded with Missing; longer rows are truncated.
func New(cols []string, rows [][]string) *Table {
	t := &Table{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
		rows:  make([][]string, 0, len(rows)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	for _, r := range rows {
		row := make([]string, len(cols))
		copy(row, r)
		t.rows = append(t.rows, row)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the ordered column names.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the value at (row, column). Unknown columns and
// out-of-range rows read as Missing.
func (t *Table) Cell(row int, col string) string {
	j, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return Missing
	}
	return t.rows[row][j]
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Col returns a copy of the named column, or nil if it does not exist.
func (t *Table) Col(name string) []string {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out
}

// WithColumn returns a new Table with the named column set to vals,
// appending the column if it is not already present. vals must have one
// entry per row.
func (t *Table) WithColumn(name string, vals []string) (*Table, error) {
	if len(vals) != len(t.rows) {
		return nil, fmt.Errorf("column %s: %d values for %d rows", name, len(vals), len(t.rows))
	}
	j, exists := t.index[name]
	cols := t.cols
	if !exists {
		cols = append(append([]string(nil), t.cols...), name)
		j = len(cols) - 1
	}
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := make([]string, len(cols))
		copy(row, r)
		row[j] = vals[i]
		rows[i] = row
	}
	return New(cols, rows), nil
}

// Filter returns a new Table keeping rows where keep is true. keep must
// have one entry per row.
func (t *Table) Filter(keep []bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for i, r := range t.rows {
		if i < len(keep) && keep[i] {
			rows = append(rows, r)
		}
	}
	return New(t.cols, rows)
}

// SortBy returns a new Table with rows stably sorted by less over row
// indices of the original table.
func (t *Table) SortBy(less func(i, j int) bool) *Table {
	order := make([]int, len(t.rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(order[a], order[b]) })
	rows := make([][]string, len(t.rows))
	for i, idx := range order {
		rows[i] = t.rows[idx]
	}
	return New(t.cols, rows)
}

// MissingCount returns the number of Missing cells in the named column.
func (t *Table) MissingCount(col string) int {
	j, ok := t.index[col]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if r[j] == Missing {
			n++
		}
	}
	return n
}

// RowKey returns a string key identifying the full row content, used for
// exact-duplicate detection.
func (t *Table) RowKey(i int) string {
	return strings.Join(t.rows[i], "\x1f")
}
