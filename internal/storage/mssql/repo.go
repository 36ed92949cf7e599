// Package mssql implements the warehouse boundary for Microsoft SQL Server
// over database/sql with the sqlserver driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"analytics/internal/recordset"
	"analytics/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a SQL Server connection and validates connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// Conservative defaults for ETL-style bursty loads.
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(16)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// createIfMissing wraps a CREATE TABLE in the SQL Server idempotency idiom.
func createIfMissing(table, createSQL string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL %s", table, createSQL)
}

func indexIfMissing(name, createSQL string) string {
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s') %s", name, createSQL)
}

var schemaStatements = []string{
	createIfMissing("dim_time", `CREATE TABLE dim_time (
		date_id BIGINT PRIMARY KEY,
		date NVARCHAR(32) NOT NULL UNIQUE,
		year INT NOT NULL,
		month INT NOT NULL,
		quarter INT NOT NULL,
		day_of_week INT NOT NULL,
		month_name NVARCHAR(32) NOT NULL,
		is_weekend INT NOT NULL DEFAULT 0,
		created_at DATETIME2 DEFAULT SYSUTCDATETIME()
	)`),
	createIfMissing("dim_product", `CREATE TABLE dim_product (
		product_key BIGINT PRIMARY KEY,
		product_id NVARCHAR(64) NOT NULL UNIQUE,
		product_category NVARCHAR(64) NOT NULL,
		created_at DATETIME2 DEFAULT SYSUTCDATETIME()
	)`),
	createIfMissing("dim_customer", `CREATE TABLE dim_customer (
		customer_key BIGINT PRIMARY KEY,
		customer_id NVARCHAR(64) NOT NULL UNIQUE,
		region NVARCHAR(64) NOT NULL,
		created_at DATETIME2 DEFAULT SYSUTCDATETIME()
	)`),
	createIfMissing("dim_user", `CREATE TABLE dim_user (
		user_key BIGINT PRIMARY KEY,
		id BIGINT NOT NULL UNIQUE,
		full_name NVARCHAR(255) NOT NULL,
		username NVARCHAR(255) NOT NULL,
		email NVARCHAR(255) NOT NULL,
		email_domain NVARCHAR(255),
		phone NVARCHAR(64),
		website NVARCHAR(255),
		company_name NVARCHAR(255),
		city NVARCHAR(255),
		street NVARCHAR(255),
		zipcode NVARCHAR(32),
		name_length BIGINT,
		created_at DATETIME2 DEFAULT SYSUTCDATETIME()
	)`),
	createIfMissing("fact_sales", `CREATE TABLE fact_sales (
		transaction_id NVARCHAR(64) PRIMARY KEY,
		date_id BIGINT NOT NULL REFERENCES dim_time(date_id),
		product_key BIGINT NOT NULL REFERENCES dim_product(product_key),
		customer_key BIGINT NOT NULL REFERENCES dim_customer(customer_key),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		unit_price FLOAT NOT NULL CHECK (unit_price > 0),
		revenue FLOAT NOT NULL,
		cost FLOAT NOT NULL,
		profit FLOAT NOT NULL,
		profit_margin FLOAT,
		created_at DATETIME2 DEFAULT SYSUTCDATETIME()
	)`),
	createIfMissing("pipeline_metadata", `CREATE TABLE pipeline_metadata (
		run_id BIGINT IDENTITY(1,1) PRIMARY KEY,
		run_uuid NVARCHAR(64) NOT NULL,
		run_timestamp DATETIME2 NOT NULL,
		pipeline_stage NVARCHAR(64) NOT NULL,
		source_type NVARCHAR(64) NOT NULL,
		records_processed BIGINT NOT NULL,
		status NVARCHAR(32) NOT NULL,
		error_message NVARCHAR(MAX),
		execution_time_seconds FLOAT
	)`),
	indexIfMissing("idx_sales_date", `CREATE INDEX idx_sales_date ON fact_sales(date_id)`),
	indexIfMissing("idx_sales_product", `CREATE INDEX idx_sales_product ON fact_sales(product_key)`),
	indexIfMissing("idx_sales_customer", `CREATE INDEX idx_sales_customer ON fact_sales(customer_key)`),
	indexIfMissing("idx_customer_region", `CREATE INDEX idx_customer_region ON dim_customer(region)`),
	indexIfMissing("idx_user_email", `CREATE INDEX idx_user_email ON dim_user(email)`),
	indexIfMissing("idx_time_year_month", `CREATE INDEX idx_time_year_month ON dim_time(year, month)`),
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mssql: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) ExistingKeys(ctx context.Context, table, keyColumn string) (map[string]struct{}, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s`, msIdent(keyColumn), msIdent(table))
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

// maxBindVars stays under SQL Server's 2100-parameter statement limit.
const maxBindVars = 2000

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
		sqlText, args := buildInsertSQL(table, columns, rows[start:end])
		res, err := r.db.ExecContext(ctx, sqlText, args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// buildInsertSQL constructs one multi-row INSERT using @pN placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
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
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			args = append(args, sql.Named("p"+strconv.Itoa(n), row[j]))
			n++
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
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pipeline_metadata
		(run_uuid, run_timestamp, pipeline_stage, source_type, records_processed, status, error_message, execution_time_seconds)
		VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8)`,
		sql.Named("p1", entry.RunUUID),
		sql.Named("p2", entry.Timestamp.UTC()),
		sql.Named("p3", entry.Stage),
		sql.Named("p4", entry.Source),
		sql.Named("p5", entry.Records),
		sql.Named("p6", entry.Status),
		sql.Named("p7", errMsg),
		sql.Named("p8", seconds),
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

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
