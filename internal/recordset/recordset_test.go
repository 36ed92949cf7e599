package recordset

import (
	"reflect"
	"testing"
	"time"
)

func TestAppendRowLengthMismatchPanics(t *testing.T) {
	rs := New("a", "b")

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on row length mismatch")
		}
	}()
	rs.AppendRow([]any{1})
}

func TestColumnIndex(t *testing.T) {
	rs := New("a", "b", "c")

	if ix := rs.ColumnIndex("b"); ix != 1 {
		t.Fatalf("ColumnIndex(b) = %d, want 1", ix)
	}
	if ix := rs.ColumnIndex("missing"); ix != -1 {
		t.Fatalf("ColumnIndex(missing) = %d, want -1", ix)
	}
	if rs.HasColumn("missing") {
		t.Fatalf("HasColumn(missing) = true")
	}
}

func TestCloneIsDeep(t *testing.T) {
	rs := New("a")
	rs.AppendRow([]any{"x"})

	cp := rs.Clone()
	cp.Rows[0][0] = "y"

	if rs.Rows[0][0] != "x" {
		t.Fatalf("mutating clone changed original: %v", rs.Rows[0][0])
	}
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	rs := New("n")
	for i := 0; i < 5; i++ {
		rs.AppendRow([]any{int64(i)})
	}

	out := rs.Filter(func(row []any) bool { return row[0].(int64)%2 == 0 })

	if out.Len() != 3 {
		t.Fatalf("Filter kept %d rows, want 3", out.Len())
	}
	if rs.Len() != 5 {
		t.Fatalf("Filter mutated the input set")
	}
}

func TestSelectOmitsAbsentColumns(t *testing.T) {
	rs := New("a", "b")
	rs.AppendRow([]any{"1", "2"})

	out := rs.Select("b", "missing", "a")

	if !reflect.DeepEqual(out.Columns, []string{"b", "a"}) {
		t.Fatalf("Select columns = %v", out.Columns)
	}
	if !reflect.DeepEqual(out.Rows[0], []any{"2", "1"}) {
		t.Fatalf("Select row = %v", out.Rows[0])
	}
}

func TestDistinctFirstSeenOrderSkipsNil(t *testing.T) {
	rs := New("v")
	for _, v := range []any{"b", "a", nil, "b", "a", "c"} {
		rs.AppendRow([]any{v})
	}

	got := rs.Distinct("v")

	if !reflect.DeepEqual(got, []any{"b", "a", "c"}) {
		t.Fatalf("Distinct = %v", got)
	}
}

func TestDistinctComparesNormalizedKeys(t *testing.T) {
	d := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rs := New("v")
	rs.AppendRow([]any{d})
	rs.AppendRow([]any{d.Add(0)})

	if got := rs.Distinct("v"); len(got) != 1 {
		t.Fatalf("Distinct = %d values, want 1", len(got))
	}
}

func TestSortedByIsStable(t *testing.T) {
	rs := New("k", "tag")
	rs.AppendRow([]any{int64(2), "first-two"})
	rs.AppendRow([]any{int64(1), "one"})
	rs.AppendRow([]any{int64(2), "second-two"})

	out := rs.SortedBy("k", func(a, b any) bool { return a.(int64) < b.(int64) })

	tags := []any{out.Rows[0][1], out.Rows[1][1], out.Rows[2][1]}
	want := []any{"one", "first-two", "second-two"}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("SortedBy order = %v, want %v", tags, want)
	}
	if rs.Rows[0][0] != int64(2) {
		t.Fatalf("SortedBy mutated the input set")
	}
}

func TestNullCounts(t *testing.T) {
	rs := New("a", "b")
	rs.AppendRow([]any{nil, "x"})
	rs.AppendRow([]any{nil, nil})
	rs.AppendRow([]any{"y", "z"})

	got := rs.NullCounts()

	want := map[string]int{"a": 2, "b": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NullCounts = %v, want %v", got, want)
	}
}
