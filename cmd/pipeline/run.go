package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"analytics/internal/ingest"
	"analytics/internal/load"
	"analytics/internal/metrics"
	"analytics/internal/recordset"
	"analytics/internal/source"
	"analytics/internal/storage"
	"analytics/internal/transform"
	"analytics/internal/validate"
)

// runner executes the pipeline stages for both source kinds against one
// repository.
type runner struct {
	repo      storage.Repository
	runID     string
	dataDir   string
	salesFile string
	usersURL  string
	verbose   bool
}

// runAll processes both sources and reports whether any of them failed.
func (r *runner) runAll(ctx context.Context) (failed bool) {
	for _, kind := range []source.Kind{source.Sales, source.UserProfile} {
		if err := r.runSource(ctx, kind); err != nil {
			log.Printf("%s: pipeline failed: %v", kind.Label(), err)
			failed = true
		}
	}
	return failed
}

// runSource takes one source through ingest, validate, transform and load.
// Every stage leaves an audit row; the load stage writes its own.
func (r *runner) runSource(ctx context.Context, kind source.Kind) error {
	p := message.NewPrinter(language.English)

	raw, err := r.runIngest(ctx, kind)
	if err != nil {
		return err
	}
	metrics.IncCounter(metrics.RecordsTotal, float64(raw.Len()), metrics.Labels{"source": kind.Label()})
	if r.verbose {
		p.Printf("%s: ingested %d records\n", kind.Label(), raw.Len())
	}

	clean, err := r.runValidate(ctx, kind, raw)
	if err != nil {
		return err
	}
	if r.verbose {
		p.Printf("%s: %d records survived validation\n", kind.Label(), clean.Len())
	}

	ts, err := r.runTransform(ctx, kind, clean)
	if err != nil {
		return err
	}
	r.printSummary(p, ts, kind)

	res, err := r.runLoad(ctx, kind, ts)
	if err != nil {
		return err
	}
	for _, t := range res.Tables {
		p.Printf("%s: %s: inserted %d, skipped %d duplicates\n", kind.Label(), t.Table, t.Inserted, t.Skipped)
	}
	return nil
}

func (r *runner) runIngest(ctx context.Context, kind source.Kind) (*recordset.RecordSet, error) {
	start := time.Now()
	rec := &ingest.Recorder{DataDir: r.dataDir, RunUUID: r.runID}

	var rs *recordset.RecordSet
	var err error
	switch kind {
	case source.Sales:
		if r.salesFile != "" {
			rs, err = ingest.ReadSalesFile(r.salesFile)
		} else {
			rs = ingest.SampleSales()
		}
	case source.UserProfile:
		rs, err = ingest.FetchUsers(ctx, nil, r.usersURL)
	}
	if err != nil {
		_ = rec.Log(kind, "FAILED", 0, err)
		r.finishStage(ctx, kind, "INGEST", 0, err, start)
		return nil, err
	}
	if _, err := rec.Record(rs, kind); err != nil {
		r.finishStage(ctx, kind, "INGEST", 0, err, start)
		return nil, err
	}
	r.finishStage(ctx, kind, "INGEST", int64(rs.Len()), nil, start)
	return rs, nil
}

func (r *runner) runValidate(ctx context.Context, kind source.Kind, raw *recordset.RecordSet) (*recordset.RecordSet, error) {
	start := time.Now()
	store := validate.NewStore(filepath.Join(r.dataDir, "logs"), filepath.Join(r.dataDir, "site", "data"))

	clean, rep, err := validate.Run(raw, kind, store)
	if err != nil {
		r.finishStage(ctx, kind, "VALIDATE", 0, err, start)
		return nil, err
	}
	r.finishStage(ctx, kind, "VALIDATE", int64(rep.FinalCount), nil, start)
	return clean, nil
}

func (r *runner) runTransform(ctx context.Context, kind source.Kind, clean *recordset.RecordSet) (*transform.TableSet, error) {
	start := time.Now()

	var ts *transform.TableSet
	var err error
	switch kind {
	case source.Sales:
		ts, err = transform.TransformSales(clean)
	case source.UserProfile:
		ts, err = transform.TransformUsers(clean)
	}
	if err == nil {
		dir := filepath.Join(r.dataDir, "data", "processed")
		_, err = transform.WriteSnapshots(ts, kind, dir, time.Now())
	}
	if err != nil {
		r.finishStage(ctx, kind, "TRANSFORM", 0, err, start)
		return nil, err
	}

	var records int64
	for _, t := range ts.Tables {
		records += int64(t.Data.Len())
	}
	r.finishStage(ctx, kind, "TRANSFORM", records, nil, start)
	return ts, nil
}

// runLoad delegates the audit row to the loader and only emits metrics here.
func (r *runner) runLoad(ctx context.Context, kind source.Kind, ts *transform.TableSet) (*load.Result, error) {
	start := time.Now()
	loader := &load.Loader{Repo: r.repo, RunUUID: r.runID}

	res, err := loader.Load(ctx, ts, kind)
	r.stageMetrics(kind, "LOAD", err, time.Since(start).Seconds())
	return res, err
}

// finishStage appends the stage audit row and emits stage metrics.
func (r *runner) finishStage(ctx context.Context, kind source.Kind, stage string, records int64, stageErr error, start time.Time) {
	secs := time.Since(start).Seconds()
	r.stageMetrics(kind, stage, stageErr, secs)

	entry := storage.RunLog{
		RunUUID:   r.runID,
		Timestamp: time.Now(),
		Stage:     stage,
		Source:    kind.Label(),
		Records:   records,
		Status:    storage.StatusSuccess,
		Seconds:   &secs,
	}
	if stageErr != nil {
		entry.Status = storage.StatusFailed
		entry.Error = stageErr.Error()
	}
	if err := r.repo.LogRun(ctx, entry); err != nil {
		log.Printf("%s: audit log: %v", kind.Label(), err)
	}
}

func (r *runner) stageMetrics(kind source.Kind, stage string, stageErr error, secs float64) {
	status := "success"
	if stageErr != nil {
		status = "failed"
	}
	labels := metrics.Labels{"stage": stage, "status": status, "source": kind.Label()}
	metrics.IncCounter(metrics.StageTotal, 1, labels)
	metrics.ObserveHistogram(metrics.StageDurationSeconds, secs, labels)
}

func (r *runner) printSummary(p *message.Printer, ts *transform.TableSet, kind source.Kind) {
	sum, err := transform.Summarize(ts, kind)
	if err != nil {
		log.Printf("%s: summary: %v", kind.Label(), err)
		return
	}
	switch s := sum.(type) {
	case transform.SalesSummary:
		p.Printf("sales: %d transactions, revenue %.2f, profit %.2f, avg transaction %.2f, quantity %d\n",
			s.TotalTransactions, s.TotalRevenue, s.TotalProfit, s.AvgTransactionValue, s.TotalQuantitySold)
	case transform.UserSummary:
		p.Printf("users: %d users across %d email domains and %d cities\n",
			s.TotalUsers, s.UniqueDomains, s.UniqueCities)
	}
}

// printWarehouseReport prints the persisted totals after both sources have
// run, so re-runs show cumulative warehouse state rather than batch state.
func (r *runner) printWarehouseReport(ctx context.Context) {
	p := message.NewPrinter(language.English)

	agg, err := r.repo.SalesSummary(ctx)
	if err != nil {
		log.Printf("warehouse summary: %v", err)
		return
	}
	p.Printf("warehouse: %d transactions, revenue %.2f, profit %.2f\n", agg.Transactions, agg.Revenue, agg.Profit)

	regions, err := r.repo.SalesByRegion(ctx)
	if err != nil {
		log.Printf("warehouse regions: %v", err)
		return
	}
	for _, reg := range regions {
		p.Printf("  %-8s %6d transactions, revenue %.2f\n", reg.Region, reg.Transactions, reg.Revenue)
	}
}
