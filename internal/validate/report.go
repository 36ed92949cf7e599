package validate

import (
	"time"

	"analytics/internal/source"
)

// Check statuses and overall report statuses.
const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
)

// CheckResult is one entry in the ordered check list of a report.
type CheckResult struct {
	Name    string `json:"check"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

// Report accumulates the outcome of one validation call. It is threaded
// through the check pipeline as an explicit accumulator and persisted exactly
// once at the end of the call; callers must treat it as immutable afterwards.
type Report struct {
	Timestamp    time.Time
	Kind         source.Kind
	InitialCount int
	FinalCount   int
	Checks       []CheckResult
	Warnings     []string
	Errors       []string
}

// NewReport creates a report stamped at validation start.
func NewReport(kind source.Kind, now time.Time) *Report {
	return &Report{Timestamp: now, Kind: kind}
}

// AddCheck appends a passed check result.
func (r *Report) AddCheck(name, details string) {
	r.Checks = append(r.Checks, CheckResult{Name: name, Status: StatusPassed, Details: details})
}

// AddWarning records a non-fatal observation (nulls found, rows dropped).
func (r *Report) AddWarning(w string) { r.Warnings = append(r.Warnings, w) }

// AddError records a fatal pipeline failure.
func (r *Report) AddError(e string) { r.Errors = append(r.Errors, e) }

// Status is FAILED iff any error was recorded.
func (r *Report) Status() string {
	if len(r.Errors) > 0 {
		return StatusFailed
	}
	return StatusPassed
}

// RecordsRemoved is the net row loss across the whole pipeline.
func (r *Report) RecordsRemoved() int { return r.InitialCount - r.FinalCount }
