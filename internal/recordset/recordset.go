// Package recordset provides the in-memory table every pipeline stage consumes
// and produces: ordered rows over named columns, with cells restricted to a
// small set of scalar types (string, int64, float64, time.Time, bool) or nil.
//
// Stages never mutate a RecordSet they received; filtering and projection
// return fresh sets with copied rows.
package recordset

import (
	"fmt"
	"sort"
)

// RecordSet is an ordered sequence of rows aligned to Columns.
//
// Invariants:
//   - len(row) == len(Columns) for every row.
//   - Column names are unique.
type RecordSet struct {
	Columns []string
	Rows    [][]any
}

// New creates an empty RecordSet with the given column order.
func New(columns ...string) *RecordSet {
	return &RecordSet{Columns: append([]string(nil), columns...)}
}

// Len returns the row count.
func (rs *RecordSet) Len() int { return len(rs.Rows) }

// ColumnIndex returns the position of a column, or -1 if absent.
func (rs *RecordSet) ColumnIndex(name string) int {
	for i, c := range rs.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the column exists.
func (rs *RecordSet) HasColumn(name string) bool { return rs.ColumnIndex(name) >= 0 }

// AppendRow appends a row. The row length must match the column count.
func (rs *RecordSet) AppendRow(row []any) {
	if len(row) != len(rs.Columns) {
		panic(fmt.Sprintf("recordset: row has %d cells, want %d", len(row), len(rs.Columns)))
	}
	rs.Rows = append(rs.Rows, row)
}

// Value returns the cell at (row, column). It panics on an unknown column;
// callers are expected to check HasColumn for optional columns.
func (rs *RecordSet) Value(row int, column string) any {
	ix := rs.ColumnIndex(column)
	if ix < 0 {
		panic(fmt.Sprintf("recordset: unknown column %q", column))
	}
	return rs.Rows[row][ix]
}

// Set overwrites the cell at (row, column).
func (rs *RecordSet) Set(row int, column string, v any) {
	ix := rs.ColumnIndex(column)
	if ix < 0 {
		panic(fmt.Sprintf("recordset: unknown column %q", column))
	}
	rs.Rows[row][ix] = v
}

// Clone returns a deep copy (rows copied cell-by-cell).
func (rs *RecordSet) Clone() *RecordSet {
	out := New(rs.Columns...)
	out.Rows = make([][]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		out.Rows = append(out.Rows, append([]any(nil), row...))
	}
	return out
}

// Filter returns a new RecordSet containing copies of the rows for which keep
// returns true, preserving order.
func (rs *RecordSet) Filter(keep func(row []any) bool) *RecordSet {
	out := New(rs.Columns...)
	for _, row := range rs.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, append([]any(nil), row...))
		}
	}
	return out
}

// Select projects the named columns into a new RecordSet. Columns absent from
// the input are silently omitted; the output preserves the requested order.
func (rs *RecordSet) Select(columns ...string) *RecordSet {
	var kept []string
	var src []int
	for _, c := range columns {
		if ix := rs.ColumnIndex(c); ix >= 0 {
			kept = append(kept, c)
			src = append(src, ix)
		}
	}
	out := New(kept...)
	for _, row := range rs.Rows {
		dst := make([]any, len(src))
		for i, ix := range src {
			dst[i] = row[ix]
		}
		out.Rows = append(out.Rows, dst)
	}
	return out
}

// Distinct returns the column's non-duplicate values in first-seen order.
// Values are compared via NormalizeKey; nil cells are skipped.
func (rs *RecordSet) Distinct(column string) []any {
	ix := rs.ColumnIndex(column)
	if ix < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []any
	for _, row := range rs.Rows {
		v := row[ix]
		if v == nil {
			continue
		}
		k := NormalizeKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortedBy returns a copy of the set stably sorted by the given column using
// the provided comparator over cell values.
func (rs *RecordSet) SortedBy(column string, less func(a, b any) bool) *RecordSet {
	ix := rs.ColumnIndex(column)
	out := rs.Clone()
	if ix < 0 {
		return out
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return less(out.Rows[i][ix], out.Rows[j][ix])
	})
	return out
}

// NullCounts returns, per column with at least one nil cell, the nil count.
func (rs *RecordSet) NullCounts() map[string]int {
	out := make(map[string]int)
	for _, row := range rs.Rows {
		for i, v := range row {
			if v == nil {
				out[rs.Columns[i]]++
			}
		}
	}
	return out
}
