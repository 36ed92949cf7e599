package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"analytics/internal/recordset"
	"analytics/internal/source"
)

// Recorder persists the ingestion audit trail: raw CSV snapshots under
// <DataDir>/data/raw, metadata documents under <DataDir>/metadata, and a
// JSONL log at <DataDir>/logs/ingestion.log.
type Recorder struct {
	DataDir string
	RunUUID string

	// now is the clock seam for tests; nil means time.Now.
	now func() time.Time
}

func (rec *Recorder) clock() time.Time {
	if rec.now != nil {
		return rec.now()
	}
	return time.Now()
}

// Snapshot is what Record leaves behind for one acquisition.
type Snapshot struct {
	RawPath      string
	MetadataPath string
	Records      int
}

type ingestMetadata struct {
	Source      string   `json:"source"`
	SourceType  string   `json:"source_type"`
	Filename    string   `json:"filename"`
	RunUUID     string   `json:"run_uuid"`
	IngestTime  string   `json:"ingestion_time"`
	RecordCount int      `json:"record_count"`
	Columns     []string `json:"columns"`
}

type ingestLogEntry struct {
	Timestamp   string `json:"timestamp"`
	RunUUID     string `json:"run_uuid"`
	SourceType  string `json:"source_type"`
	Status      string `json:"status"`
	RecordCount int    `json:"record_count"`
	Error       string `json:"error,omitempty"`
}

// Record writes the raw snapshot and metadata document for an acquired record
// set and appends a SUCCESS log entry.
func (rec *Recorder) Record(rs *recordset.RecordSet, kind source.Kind) (*Snapshot, error) {
	now := rec.clock()
	stamp := now.Format("20060102_150405")
	label := kind.Label()

	rawDir := filepath.Join(rec.DataDir, "data", "raw")
	metaDir := filepath.Join(rec.DataDir, "metadata")
	for _, d := range []string{rawDir, metaDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}

	rawPath := filepath.Join(rawDir, fmt.Sprintf("%s_raw_%s.csv", label, stamp))
	if err := writeRawCSV(rawPath, rs); err != nil {
		return nil, fmt.Errorf("raw snapshot: %w", err)
	}

	meta := ingestMetadata{
		Source:      sourceName(kind),
		SourceType:  sourceTypeName(kind),
		Filename:    filepath.Base(rawPath),
		RunUUID:     rec.RunUUID,
		IngestTime:  stamp,
		RecordCount: rs.Len(),
		Columns:     rs.Columns,
	}
	metaPath := filepath.Join(metaDir, fmt.Sprintf("%s_metadata_%s.json", label, stamp))
	if err := writeJSON(metaPath, meta); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	if err := rec.Log(kind, "SUCCESS", rs.Len(), nil); err != nil {
		return nil, err
	}
	return &Snapshot{RawPath: rawPath, MetadataPath: metaPath, Records: rs.Len()}, nil
}

// Log appends one entry to the ingestion log. Call with a non-nil err to
// record a FAILED acquisition.
func (rec *Recorder) Log(kind source.Kind, status string, records int, ingestErr error) error {
	logsDir := filepath.Join(rec.DataDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return err
	}

	entry := ingestLogEntry{
		Timestamp:   rec.clock().Format(time.RFC3339),
		RunUUID:     rec.RunUUID,
		SourceType:  sourceName(kind),
		Status:      status,
		RecordCount: records,
	}
	if ingestErr != nil {
		entry.Error = ingestErr.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logsDir, "ingestion.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Close()
}

func sourceName(kind source.Kind) string {
	if kind == source.UserProfile {
		return "API"
	}
	return "CSV"
}

func sourceTypeName(kind source.Kind) string {
	if kind == source.UserProfile {
		return "User Profiles"
	}
	return "Sales Transactions"
}

func writeRawCSV(path string, rs *recordset.RecordSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rs.Columns); err != nil {
		return err
	}
	out := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, v := range row {
			if v == nil {
				out[i] = ""
			} else {
				out[i] = fmt.Sprint(v)
			}
		}
		if err := w.Write(out); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
