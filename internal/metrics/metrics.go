// Package metrics is the instrumentation seam for the pipeline. The core
// stages depend only on the package-level functions; a concrete backend is
// installed once at startup. The default backend discards everything, so
// instrumented code never has to check whether metrics are configured.
package metrics

import "sync/atomic"

// Labels attach dimensions to a metric observation.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits anything buffered. Called at least once at shutdown.
	Flush() error
}

// Metric names emitted by the pipeline runner.
const (
	StageTotal           = "pipeline_stage_total"
	RecordsTotal         = "pipeline_records_total"
	StageDurationSeconds = "pipeline_stage_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// backendHolder gives atomic.Value the single concrete type it requires,
// regardless of the dynamic type of the installed Backend.
type backendHolder struct{ b Backend }

var backend atomic.Value

func init() {
	backend.Store(backendHolder{nopBackend{}})
}

// SetBackend installs the process-wide backend. Call once at startup, before
// the pipeline runs.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(backendHolder{b})
}

func current() Backend {
	return backend.Load().(backendHolder).b
}

// IncCounter adds delta to a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error {
	return current().Flush()
}
