package recordset

import (
	"testing"
	"time"
)

func TestCoerceDate(t *testing.T) {
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		in      any
		want    time.Time
		wantErr bool
	}{
		{"2025-06-15", want, false},
		{" 2025-06-15 ", want, false},
		{"2025-06-15 10:30:00", time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC), false},
		{want, want, false},
		{"15/06/2025", time.Time{}, true},
		{int64(42), time.Time{}, true},
		{nil, time.Time{}, true},
	}
	for _, c := range cases {
		got, err := CoerceDate(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("CoerceDate(%v) err = %v, wantErr %v", c.in, err, c.wantErr)
		}
		if err == nil && !got.Equal(c.want) {
			t.Fatalf("CoerceDate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{int64(7), 7, false},
		{3, 3, false},
		{5.0, 5, false},
		{"12", 12, false},
		{" 12 ", 12, false},
		{"5.0", 5, false},
		{5.5, 0, true},
		{"5.5", 0, true},
		{"abc", 0, true},
		{nil, 0, true},
	}
	for _, c := range cases {
		got, err := CoerceInt(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("CoerceInt(%v) err = %v, wantErr %v", c.in, err, c.wantErr)
		}
		if err == nil && got != c.want {
			t.Fatalf("CoerceInt(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCoerceFloat(t *testing.T) {
	cases := []struct {
		in      any
		want    float64
		wantErr bool
	}{
		{2.5, 2.5, false},
		{int64(4), 4, false},
		{"19.99", 19.99, false},
		{"not-a-number", 0, true},
		{nil, 0, true},
	}
	for _, c := range cases {
		got, err := CoerceFloat(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("CoerceFloat(%v) err = %v, wantErr %v", c.in, err, c.wantErr)
		}
		if err == nil && got != c.want {
			t.Fatalf("CoerceFloat(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{" TXN001 ", "TXN001"},
		{int64(42), "42"},
		{42, "42"},
		{time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC), "2025-01-02"},
		{[]byte(" k1 "), "k1"},
		{3.5, "3.5"},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Fatalf("NormalizeKey(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeKeyAgreesAcrossRepresentations(t *testing.T) {
	d := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	if NormalizeKey(d) != NormalizeKey("2025-01-02") {
		t.Fatalf("date keys disagree between typed and text form")
	}
	if NormalizeKey(int64(5)) != NormalizeKey("5") {
		t.Fatalf("integer keys disagree between typed and text form")
	}
}
