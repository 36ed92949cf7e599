package transform

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"analytics/internal/source"
)

func TestWriteSnapshots(t *testing.T) {
	ts, err := TransformSales(validatedSales())
	if err != nil {
		t.Fatalf("TransformSales: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "processed")
	runTime := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

	paths, err := WriteSnapshots(ts, source.Sales, dir, runTime)
	if err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("wrote %d files, want 4", len(paths))
	}
	if base := filepath.Base(paths[0]); base != "dim_time_sales_20250301_103000.csv" {
		t.Fatalf("first snapshot = %s", base)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	// header + 3 distinct dates
	if len(recs) != 4 {
		t.Fatalf("snapshot has %d lines, want 4", len(recs))
	}
	if strings.Join(recs[0], ",") != "date_id,date,year,month,quarter,day_of_week,month_name,is_weekend" {
		t.Fatalf("header = %v", recs[0])
	}
	// dates render in canonical form, booleans as true/false
	if recs[1][1] != "2025-01-05" {
		t.Fatalf("date cell = %q", recs[1][1])
	}
	if recs[1][7] != "true" {
		t.Fatalf("is_weekend cell = %q", recs[1][7])
	}
}

func TestWriteSnapshotsRendersNilAsEmpty(t *testing.T) {
	rs := validatedSales()
	rs.AppendRow([]any{"TXN009", date(2025, 1, 7), "PROD001", "C2", int64(1), 1.0, 0.0, "East"})

	ts, err := TransformSales(rs)
	if err != nil {
		t.Fatalf("TransformSales: %v", err)
	}

	paths, err := WriteSnapshots(ts, source.Sales, t.TempDir(), time.Now())
	if err != nil {
		t.Fatalf("WriteSnapshots: %v", err)
	}

	var factPath string
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), TableFactSales) {
			factPath = p
		}
	}
	f, err := os.Open(factPath)
	if err != nil {
		t.Fatalf("open fact snapshot: %v", err)
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read fact snapshot: %v", err)
	}
	last := recs[len(recs)-1]
	// zero-revenue row has an undefined margin, serialized as empty
	if last[len(last)-1] != "" {
		t.Fatalf("profit_margin cell = %q, want empty", last[len(last)-1])
	}
}
