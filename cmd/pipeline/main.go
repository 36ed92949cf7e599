package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"analytics/internal/metrics"
	"analytics/internal/metrics/datadog"
	"analytics/internal/storage"

	// register all storage backends with the factory; -db selects one at
	// runtime.
	_ "analytics/internal/storage/all"
)

// main wires the four-stage pipeline: acquire both sources, validate them,
// reshape into the star schema, and load the warehouse. Each source runs to
// completion independently; a failure in one does not stop the other.
func main() {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	var (
		dbKind         string
		dsn            string
		dataDir        string
		salesFile      string
		usersURL       string
		metricsBackend string
	)

	flag.StringVar(&dbKind, "db", "", "storage backend (sqlite, postgres, mssql); env ANALYTICS_DB_KIND")
	flag.StringVar(&dsn, "dsn", "", "storage DSN; env ANALYTICS_DB_DSN")
	flag.StringVar(&dataDir, "data-dir", "", "directory for raw data, logs and snapshots; env ANALYTICS_DATA_DIR")
	flag.StringVar(&salesFile, "sales-file", "", "sales CSV path (empty generates the sample dataset)")
	flag.StringVar(&usersURL, "users-url", "", "user-profile feed URL; env USERS_FEED_URL")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend (datadog, none); env METRICS_BACKEND")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	// Resolution order for every setting: flag → env → default.
	dbKind = resolve(dbKind, "ANALYTICS_DB_KIND", "sqlite")
	dsn = resolve(dsn, "ANALYTICS_DB_DSN", "analytics.db")
	dataDir = resolve(dataDir, "ANALYTICS_DATA_DIR", ".")
	usersURL = resolve(usersURL, "USERS_FEED_URL", "")
	metricsBackend = resolve(metricsBackend, "METRICS_BACKEND", "")

	switch metricsBackend {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "analytics",
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: datadog init failed: %v; using nop", err)
		} else {
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}
	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled")
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", metricsBackend)
	}

	ctx := context.Background()
	runID := uuid.NewString()
	start := time.Now()

	repo, err := storage.Open(ctx, storage.Config{Kind: dbKind, DSN: dsn})
	if err != nil {
		log.Fatalf("storage: open %s: %v", dbKind, err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("storage: %v", err)
	}

	r := &runner{
		repo:      repo,
		runID:     runID,
		dataDir:   dataDir,
		salesFile: salesFile,
		usersURL:  usersURL,
		verbose:   *verbose,
	}

	if *verbose {
		log.Printf("run %s: db=%s data-dir=%s", runID, dbKind, dataDir)
	}

	failed := r.runAll(ctx)

	r.printWarehouseReport(ctx)

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	if failed {
		os.Exit(1)
	}
}

func resolve(flagVal, envName, def string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return def
}
