package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"analytics/internal/recordset"
	"analytics/internal/source"
)

func TestRecorderRecord(t *testing.T) {
	dir := t.TempDir()
	rec := &Recorder{
		DataDir: dir,
		RunUUID: "run-42",
		now:     func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) },
	}

	rs := recordset.New("transaction_id", "date")
	rs.AppendRow([]any{"TXN001", "2025-01-01"})
	rs.AppendRow([]any{"TXN002", nil})

	snap, err := rec.Record(rs, source.Sales)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if snap.Records != 2 {
		t.Fatalf("Records = %d", snap.Records)
	}

	wantRaw := filepath.Join(dir, "data", "raw", "sales_raw_20250301_103000.csv")
	if snap.RawPath != wantRaw {
		t.Fatalf("RawPath = %s, want %s", snap.RawPath, wantRaw)
	}
	raw, err := os.ReadFile(snap.RawPath)
	if err != nil {
		t.Fatalf("read raw snapshot: %v", err)
	}
	want := "transaction_id,date\nTXN001,2025-01-01\nTXN002,\n"
	if string(raw) != want {
		t.Fatalf("raw snapshot = %q", raw)
	}

	metaBytes, err := os.ReadFile(snap.MetadataPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta["source"] != "CSV" || meta["source_type"] != "Sales Transactions" {
		t.Fatalf("metadata = %v", meta)
	}
	if meta["run_uuid"] != "run-42" {
		t.Fatalf("run_uuid = %v", meta["run_uuid"])
	}
	if meta["record_count"] != float64(2) {
		t.Fatalf("record_count = %v", meta["record_count"])
	}

	// Record appends a SUCCESS log entry.
	entries := readLogEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("log has %d entries", len(entries))
	}
	if entries[0]["status"] != "SUCCESS" || entries[0]["source_type"] != "CSV" {
		t.Fatalf("log entry = %v", entries[0])
	}
}

func TestRecorderLogFailure(t *testing.T) {
	dir := t.TempDir()
	rec := &Recorder{DataDir: dir, RunUUID: "run-43"}

	if err := rec.Log(source.UserProfile, "FAILED", 0, errors.New("connection refused")); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries := readLogEntries(t, dir)
	if len(entries) != 1 {
		t.Fatalf("log has %d entries", len(entries))
	}
	e := entries[0]
	if e["status"] != "FAILED" || e["source_type"] != "API" {
		t.Fatalf("entry = %v", e)
	}
	if e["error"] != "connection refused" {
		t.Fatalf("error = %v", e["error"])
	}
	if e["run_uuid"] != "run-43" {
		t.Fatalf("run_uuid = %v", e["run_uuid"])
	}
}

func TestRecorderLogAppends(t *testing.T) {
	dir := t.TempDir()
	rec := &Recorder{DataDir: dir, RunUUID: "r"}

	for i := 0; i < 3; i++ {
		if err := rec.Log(source.Sales, "SUCCESS", i, nil); err != nil {
			t.Fatalf("Log %d: %v", i, err)
		}
	}
	if got := len(readLogEntries(t, dir)); got != 3 {
		t.Fatalf("log has %d entries, want 3", got)
	}
}

func readLogEntries(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "logs", "ingestion.log"))
	if err != nil {
		t.Fatalf("open ingestion.log: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}
