package transform

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"analytics/internal/recordset"
	"analytics/internal/source"
)

// WriteSnapshots persists every table of the set as a columnar CSV snapshot,
// one file per table per run, named <table>_<kind>_<timestamp>.csv. It
// returns the written paths.
func WriteSnapshots(ts *TableSet, kind source.Kind, dir string, runTime time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stamp := runTime.Format("20060102_150405")

	var paths []string
	for _, t := range ts.Tables {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.csv", t.Name, kind.Label(), stamp))
		if err := writeTableCSV(path, t.Data); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", t.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTableCSV(path string, rs *recordset.RecordSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rs.Columns); err != nil {
		return err
	}
	rec := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, v := range row {
			rec[i] = renderCell(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// renderCell formats a typed scalar for CSV output; nil becomes the empty
// string, matching how ingestion reads empties back as nulls.
func renderCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(recordset.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}
