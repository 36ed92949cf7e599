// Package storage defines the warehouse boundary: a backend-agnostic
// Repository interface, a factory registry the concrete backends register
// into, and the shared audit-row type.
//
// Backends implement the same semantics in their own idiomatic way (SQLite
// via database/sql, Postgres via pgx, SQL Server via database/sql); the
// loader on top stays backend-free.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Warehouse table names. The relational schema is fixed: four dimension
// tables, one fact table, and the pipeline audit table.
const (
	TableDimTime          = "dim_time"
	TableDimProduct       = "dim_product"
	TableDimCustomer      = "dim_customer"
	TableDimUser          = "dim_user"
	TableFactSales        = "fact_sales"
	TablePipelineMetadata = "pipeline_metadata"
)

// Audit statuses recorded in pipeline_metadata.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Config selects and configures a backend.
type Config struct {
	// Kind must match a registered backend kind ("sqlite", "postgres",
	// "mssql").
	Kind string
	// DSN is passed through to the backend; validation is backend-specific.
	DSN string
}

// RunLog is one pipeline_metadata audit row. Every stage-and-source
// combination appends exactly one on every run, success or failure.
type RunLog struct {
	RunUUID   string
	Timestamp time.Time
	Stage     string
	Source    string
	Records   int64
	Status    string
	// Error is empty on success and stored as NULL.
	Error string
	// Seconds is the stage execution time; nil when not measured.
	Seconds *float64
}

// SalesAggregate mirrors the warehouse-side summary query over fact_sales.
type SalesAggregate struct {
	Transactions int64
	Revenue      float64
	Profit       float64
	AvgRevenue   float64
	Quantity     int64
	AvgMargin    float64
}

// RegionSales is one row of the revenue-by-region report, ordered by revenue
// descending.
type RegionSales struct {
	Region       string
	Transactions int64
	Revenue      float64
	Profit       float64
	AvgRevenue   float64
}

// Repository is the persistence boundary consumed by the loader and the
// runner.
//
// IMPORTANT: ExistingKeys is a one-shot snapshot per table per load call; the
// loader performs set-difference dedup in memory and never issues per-row
// existence queries.
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureSchema creates the star-schema tables, constraints and indexes
	// if absent. Idempotent and safe to run on every invocation.
	EnsureSchema(ctx context.Context) error

	// ExistingKeys returns the normalized natural-key values already
	// persisted in the table.
	ExistingKeys(ctx context.Context, table, keyColumn string) (map[string]struct{}, error)

	// InsertRows bulk-inserts and returns the number of rows the backend
	// actually inserted. That count is authoritative for reporting.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// LogRun appends one pipeline_metadata row.
	LogRun(ctx context.Context, entry RunLog) error

	// SalesSummary aggregates fact_sales; a zero-value aggregate means the
	// table is empty.
	SalesSummary(ctx context.Context) (SalesAggregate, error)

	// SalesByRegion joins fact_sales to dim_customer grouped by region.
	SalesByRegion(ctx context.Context) ([]RegionSales, error)
}

// ---- backend factory registry ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init() in the
// backend package; registering the same kind twice panics to fail fast on
// ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Open constructs a Repository using the registered backend factory.
func Open(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
