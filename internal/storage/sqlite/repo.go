// Package sqlite is the default warehouse backend, backed by the pure-Go
// modernc.org/sqlite driver.
//
// SQLite notes:
//   - Calendar dates are stored as TEXT in 2006-01-02 form; SQLite has no
//     native date type and TEXT round-trips reliably.
//   - is_weekend is stored as INTEGER 0/1 (the loader binds booleans that
//     way for every backend).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"analytics/internal/recordset"
	"analytics/internal/storage"
)

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the SQLite database at cfg.DSN (a file path) and enables foreign
// key enforcement.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_time (
		date_id INTEGER PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		quarter INTEGER NOT NULL,
		day_of_week INTEGER NOT NULL,
		month_name TEXT NOT NULL,
		is_weekend INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS dim_product (
		product_key INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL UNIQUE,
		product_category TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS dim_customer (
		customer_key INTEGER PRIMARY KEY,
		customer_id TEXT NOT NULL UNIQUE,
		region TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS dim_user (
		user_key INTEGER PRIMARY KEY,
		id INTEGER NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		email_domain TEXT,
		phone TEXT,
		website TEXT,
		company_name TEXT,
		city TEXT,
		street TEXT,
		zipcode TEXT,
		name_length INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS fact_sales (
		transaction_id TEXT PRIMARY KEY,
		date_id INTEGER NOT NULL,
		product_key INTEGER NOT NULL,
		customer_key INTEGER NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price REAL NOT NULL CHECK (unit_price > 0),
		revenue REAL NOT NULL,
		cost REAL NOT NULL,
		profit REAL NOT NULL,
		profit_margin REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (date_id) REFERENCES dim_time(date_id),
		FOREIGN KEY (product_key) REFERENCES dim_product(product_key),
		FOREIGN KEY (customer_key) REFERENCES dim_customer(customer_key)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_metadata (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_uuid TEXT NOT NULL,
		run_timestamp TIMESTAMP NOT NULL,
		pipeline_stage TEXT NOT NULL,
		source_type TEXT NOT NULL,
		records_processed INTEGER NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		execution_time_seconds REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_date ON fact_sales(date_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_product ON fact_sales(product_key)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON fact_sales(customer_key)`,
	`CREATE INDEX IF NOT EXISTS idx_customer_region ON dim_customer(region)`,
	`CREATE INDEX IF NOT EXISTS idx_user_email ON dim_user(email)`,
	`CREATE INDEX IF NOT EXISTS idx_user_city ON dim_user(city)`,
	`CREATE INDEX IF NOT EXISTS idx_time_year_month ON dim_time(year, month)`,
}

// EnsureSchema creates the star schema and indexes if absent.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) ExistingKeys(ctx context.Context, table, keyColumn string) (map[string]struct{}, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s`, sqlIdent(keyColumn), sqlIdent(table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var k any
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out[recordset.NormalizeKey(k)] = struct{}{}
	}
	return out, rows.Err()
}

// maxBindVars keeps multi-row inserts well under SQLite's bound-parameter
// limit.
const maxBindVars = 900

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	perChunk := maxBindVars / len(columns)
	if perChunk < 1 {
		perChunk = 1
	}

	var total int64
	for start := 0; start < len(rows); start += perChunk {
		end := start + perChunk
		if end > len(rows) {
			end = len(rows)
		}
		n, err := r.insertChunk(ctx, table, columns, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *Repo) insertChunk(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	ph := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ph)
		args = append(args, row...)
	}

	res, err := r.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) LogRun(ctx context.Context, entry storage.RunLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pipeline_metadata
		(run_uuid, run_timestamp, pipeline_stage, source_type, records_processed, status, error_message, execution_time_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunUUID,
		entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		entry.Stage,
		entry.Source,
		entry.Records,
		entry.Status,
		nullString(entry.Error),
		nullFloat(entry.Seconds),
	)
	return err
}

func (r *Repo) SalesSummary(ctx context.Context) (storage.SalesAggregate, error) {
	var agg storage.SalesAggregate
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(revenue), 0),
		       COALESCE(SUM(profit), 0),
		       COALESCE(AVG(revenue), 0),
		       COALESCE(SUM(quantity), 0),
		       COALESCE(AVG(profit_margin), 0)
		FROM fact_sales`,
	).Scan(&agg.Transactions, &agg.Revenue, &agg.Profit, &agg.AvgRevenue, &agg.Quantity, &agg.AvgMargin)
	if err != nil {
		return storage.SalesAggregate{}, err
	}
	return agg, nil
}

func (r *Repo) SalesByRegion(ctx context.Context) ([]storage.RegionSales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.region, COUNT(*), SUM(s.revenue), SUM(s.profit), AVG(s.revenue)
		FROM fact_sales s
		JOIN dim_customer c ON s.customer_key = c.customer_key
		GROUP BY c.region
		ORDER BY SUM(s.revenue) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.RegionSales
	for rows.Next() {
		var rg storage.RegionSales
		if err := rows.Scan(&rg.Region, &rg.Transactions, &rg.Revenue, &rg.Profit, &rg.AvgRevenue); err != nil {
			return nil, err
		}
		out = append(out, rg)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
