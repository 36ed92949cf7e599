// Package postgres implements the warehouse boundary for PostgreSQL using
// pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"analytics/internal/recordset"
	"analytics/internal/storage"
)

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a pooled Postgres repository from a pgx DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_time (
		date_id BIGINT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		quarter INTEGER NOT NULL,
		day_of_week INTEGER NOT NULL,
		month_name TEXT NOT NULL,
		is_weekend INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dim_product (
		product_key BIGINT PRIMARY KEY,
		product_id TEXT NOT NULL UNIQUE,
		product_category TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dim_customer (
		customer_key BIGINT PRIMARY KEY,
		customer_id TEXT NOT NULL UNIQUE,
		region TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dim_user (
		user_key BIGINT PRIMARY KEY,
		id BIGINT NOT NULL UNIQUE,
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
		name_length BIGINT,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS fact_sales (
		transaction_id TEXT PRIMARY KEY,
		date_id BIGINT NOT NULL REFERENCES dim_time(date_id),
		product_key BIGINT NOT NULL REFERENCES dim_product(product_key),
		customer_key BIGINT NOT NULL REFERENCES dim_customer(customer_key),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		unit_price DOUBLE PRECISION NOT NULL CHECK (unit_price > 0),
		revenue DOUBLE PRECISION NOT NULL,
		cost DOUBLE PRECISION NOT NULL,
		profit DOUBLE PRECISION NOT NULL,
		profit_margin DOUBLE PRECISION,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_metadata (
		run_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		run_uuid TEXT NOT NULL,
		run_timestamp TIMESTAMPTZ NOT NULL,
		pipeline_stage TEXT NOT NULL,
		source_type TEXT NOT NULL,
		records_processed BIGINT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		execution_time_seconds DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_date ON fact_sales(date_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_product ON fact_sales(product_key)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON fact_sales(customer_key)`,
	`CREATE INDEX IF NOT EXISTS idx_customer_region ON dim_customer(region)`,
	`CREATE INDEX IF NOT EXISTS idx_user_email ON dim_user(email)`,
	`CREATE INDEX IF NOT EXISTS idx_user_city ON dim_user(city)`,
	`CREATE INDEX IF NOT EXISTS idx_time_year_month ON dim_time(year, month)`,
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) ExistingKeys(ctx context.Context, table, keyColumn string) (map[string]struct{}, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s`, pgIdent(keyColumn), pgIdent(table))
	rows, err := r.pool.Query(ctx, q)
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

// maxBindVars stays well under the Postgres extended-protocol parameter
// limit (65535).
const maxBindVars = 10000

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
		sql, args := buildInsertSQL(table, columns, rows[start:end])
		cmd, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// buildInsertSQL constructs one multi-row INSERT and its args. It is pure so
// placeholder numbering can be tested without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			n++
			args = append(args, row[j])
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func (r *Repo) LogRun(ctx context.Context, entry storage.RunLog) error {
	var seconds any
	if entry.Seconds != nil {
		seconds = *entry.Seconds
	}
	var errMsg any
	if entry.Error != "" {
		errMsg = entry.Error
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pipeline_metadata
		(run_uuid, run_timestamp, pipeline_stage, source_type, records_processed, status, error_message, execution_time_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.RunUUID, entry.Timestamp.UTC(), entry.Stage, entry.Source,
		entry.Records, entry.Status, errMsg, seconds,
	)
	return err
}

func (r *Repo) SalesSummary(ctx context.Context) (storage.SalesAggregate, error) {
	var agg storage.SalesAggregate
	err := r.pool.QueryRow(ctx, `
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
	rows, err := r.pool.Query(ctx, `
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

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
