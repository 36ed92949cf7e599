// Package load moves transformed table sets into the warehouse through the
// storage.Repository boundary, deduplicating against already-persisted rows.
package load

import (
	"context"
	"fmt"
	"time"

	"analytics/internal/recordset"
	"analytics/internal/source"
	"analytics/internal/storage"
	"analytics/internal/transform"
)

// LoadError wraps a backend failure with the table it occurred on.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// TableResult reports the per-table outcome of a load.
type TableResult struct {
	Table    string
	Inserted int64
	Skipped  int64
}

// Result is the outcome of loading one table set.
type Result struct {
	Tables []TableResult
	// Records is the insert count of the set's final table (the fact table
	// for sales, dim_user for users), which is what the audit row records.
	Records int64
	Seconds float64
}

// Loader writes table sets to a repository. Now is a clock seam for tests;
// nil means time.Now.
type Loader struct {
	Repo    storage.Repository
	RunUUID string
	Now     func() time.Time
}

func (l *Loader) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Load inserts every table of the set in order. For each table it takes one
// snapshot of the persisted natural keys, drops rows whose key is already
// persisted or already seen earlier in the batch, and bulk-inserts the rest.
// The backend's insert count is authoritative. One audit row is appended per
// call: SUCCESS with the final table's insert count, or FAILED with the error.
func (l *Loader) Load(ctx context.Context, ts *transform.TableSet, kind source.Kind) (*Result, error) {
	start := l.now()
	res := &Result{}

	for _, t := range ts.Tables {
		tr, err := l.loadTable(ctx, t)
		if err != nil {
			l.logRun(ctx, kind, 0, storage.StatusFailed, err, start)
			return nil, &LoadError{Table: t.Name, Err: err}
		}
		res.Tables = append(res.Tables, tr)
		res.Records = tr.Inserted
	}
	res.Seconds = l.now().Sub(start).Seconds()

	l.logRun(ctx, kind, res.Records, storage.StatusSuccess, nil, start)
	return res, nil
}

func (l *Loader) loadTable(ctx context.Context, t transform.Table) (TableResult, error) {
	tr := TableResult{Table: t.Name}

	keyIx := t.Data.ColumnIndex(t.NaturalKey)
	if keyIx < 0 {
		return tr, fmt.Errorf("table %s: missing natural key column %s", t.Name, t.NaturalKey)
	}

	existing, err := l.Repo.ExistingKeys(ctx, t.Name, t.NaturalKey)
	if err != nil {
		return tr, err
	}

	var rows [][]any
	seen := map[string]struct{}{}
	for _, row := range t.Data.Rows {
		key := recordset.NormalizeKey(row[keyIx])
		if _, dup := existing[key]; dup {
			tr.Skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			tr.Skipped++
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, bindRow(row))
	}

	if len(rows) == 0 {
		return tr, nil
	}
	n, err := l.Repo.InsertRows(ctx, t.Name, t.Data.Columns, rows)
	if err != nil {
		return tr, err
	}
	tr.Inserted = n
	return tr, nil
}

// bindRow converts typed cells to driver-portable values: dates to their
// canonical text form, booleans to 0/1 integers. All three backends then
// store identical representations.
func bindRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case time.Time:
			out[i] = t.Format(recordset.DateLayout)
		case bool:
			if t {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		default:
			out[i] = v
		}
	}
	return out
}

func (l *Loader) logRun(ctx context.Context, kind source.Kind, records int64, status string, loadErr error, start time.Time) {
	secs := l.now().Sub(start).Seconds()
	entry := storage.RunLog{
		RunUUID:   l.RunUUID,
		Timestamp: l.now(),
		Stage:     "LOAD",
		Source:    kind.Label(),
		Records:   records,
		Status:    status,
		Seconds:   &secs,
	}
	if loadErr != nil {
		entry.Error = loadErr.Error()
	}
	// Audit logging must not mask the load outcome.
	_ = l.Repo.LogRun(ctx, entry)
}
