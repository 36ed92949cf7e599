package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store persists validation reports as JSON documents, one per validation
// call, and maintains a rolling summary of the latest runs for the reporting
// site.
type Store struct {
	// LogsDir receives validation_<kind>_<timestamp>.json files.
	LogsDir string
	// SiteDir receives validation.json (latest-two-runs summary). Empty
	// disables summary export.
	SiteDir string

	now func() time.Time
}

// NewStore creates a store writing reports under logsDir and the rolling
// summary under siteDir.
func NewStore(logsDir, siteDir string) *Store {
	return &Store{LogsDir: logsDir, SiteDir: siteDir, now: time.Now}
}

// reportDoc is the persisted shape of a Report.
type reportDoc struct {
	Timestamp      string        `json:"timestamp"`
	SourceType     string        `json:"source_type"`
	InitialCount   int           `json:"initial_record_count"`
	FinalCount     int           `json:"final_record_count"`
	RecordsRemoved int           `json:"records_removed"`
	Checks         []CheckResult `json:"checks"`
	Errors         []string      `json:"errors"`
	Warnings       []string      `json:"warnings"`
	Status         string        `json:"status"`
}

func docFor(r *Report) reportDoc {
	doc := reportDoc{
		Timestamp:      r.Timestamp.Format(time.RFC3339),
		SourceType:     r.Kind.Label(),
		InitialCount:   r.InitialCount,
		FinalCount:     r.FinalCount,
		RecordsRemoved: r.RecordsRemoved(),
		Checks:         r.Checks,
		Errors:         r.Errors,
		Warnings:       r.Warnings,
		Status:         r.Status(),
	}
	if doc.Checks == nil {
		doc.Checks = []CheckResult{}
	}
	if doc.Errors == nil {
		doc.Errors = []string{}
	}
	if doc.Warnings == nil {
		doc.Warnings = []string{}
	}
	return doc
}

// Save writes the report document and returns its path. Reports are keyed by
// source kind and run timestamp so successive runs never collide.
func (s *Store) Save(r *Report) (string, error) {
	if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("validation_%s_%s.json", r.Kind.Label(), s.now().Format("20060102_150405"))
	path := filepath.Join(s.LogsDir, name)

	b, err := json.MarshalIndent(docFor(r), "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// summaryDoc aggregates the most recent validation reports for the site.
type summaryDoc struct {
	Stage       string            `json:"stage"`
	Status      string            `json:"status"`
	Timestamp   *string           `json:"timestamp"`
	Validations []json.RawMessage `json:"validations"`
}

// ExportSummary writes SiteDir/validation.json containing the latest two
// report documents (by file name, which sorts chronologically). With no
// reports present it records a NOT_RUN summary.
func (s *Store) ExportSummary() error {
	if s.SiteDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.SiteDir, 0o755); err != nil {
		return err
	}

	matches, err := filepath.Glob(filepath.Join(s.LogsDir, "validation_*.json"))
	if err != nil {
		return err
	}
	sort.Strings(matches)
	if len(matches) > 2 {
		matches = matches[len(matches)-2:]
	}

	doc := summaryDoc{Stage: "validation", Status: "NOT_RUN", Validations: []json.RawMessage{}}
	if len(matches) > 0 {
		ts := s.now().Format(time.RFC3339)
		doc.Status = "SUCCESS"
		doc.Timestamp = &ts
		for _, m := range matches {
			b, err := os.ReadFile(m)
			if err != nil {
				return err
			}
			doc.Validations = append(doc.Validations, json.RawMessage(b))
		}
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.SiteDir, "validation.json"), b, 0o644)
}
