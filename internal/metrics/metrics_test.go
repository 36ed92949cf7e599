package metrics

import "testing"

type recordingBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		counters:   map[string]float64{},
		histograms: map[string][]float64{},
	}
}

func (b *recordingBackend) IncCounter(name string, delta float64, _ Labels) {
	b.counters[name] += delta
}

func (b *recordingBackend) ObserveHistogram(name string, value float64, _ Labels) {
	b.histograms[name] = append(b.histograms[name], value)
}

func (b *recordingBackend) Flush() error {
	b.flushed++
	return nil
}

func TestDefaultBackendIsNop(t *testing.T) {
	// Must not panic and must not fail with nothing installed.
	IncCounter(StageTotal, 1, Labels{"stage": "INGEST"})
	ObserveHistogram(StageDurationSeconds, 0.5, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestSetBackendForwards(t *testing.T) {
	b := newRecordingBackend()
	SetBackend(b)
	defer SetBackend(nil)

	IncCounter(StageTotal, 1, Labels{"stage": "LOAD"})
	IncCounter(StageTotal, 1, Labels{"stage": "LOAD"})
	ObserveHistogram(StageDurationSeconds, 1.25, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if b.counters[StageTotal] != 2 {
		t.Fatalf("counter = %v", b.counters[StageTotal])
	}
	if len(b.histograms[StageDurationSeconds]) != 1 {
		t.Fatalf("histogram samples = %v", b.histograms[StageDurationSeconds])
	}
	if b.flushed != 1 {
		t.Fatalf("flushed %d times", b.flushed)
	}
}

func TestSetBackendNilRestoresNop(t *testing.T) {
	SetBackend(newRecordingBackend())
	SetBackend(nil)

	// Nop again: no panic.
	IncCounter(RecordsTotal, 5, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
