// Package ingest acquires raw source data: sales transactions from CSV (or a
// deterministic generated sample) and user profiles from an HTTP feed. Every
// acquisition leaves a raw CSV snapshot, a metadata document and an
// ingestion-log entry behind.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"analytics/internal/recordset"
)

// ReadSalesCSV reads a sales transaction file into a record set. Headers are
// normalized (edge-space trimmed, BOM stripped, lowercased, spaces replaced
// with underscores) and empty cells become nil so the validators see them as
// nulls.
func ReadSalesCSV(r io.Reader) (*recordset.RecordSet, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		columns[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
	}

	rs := recordset.New(columns...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		row := make([]any, len(columns))
		for i := range columns {
			if i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			row[i] = v
		}
		rs.AppendRow(row)
	}
	return rs, nil
}

// ReadSalesFile opens and reads a sales CSV from disk.
func ReadSalesFile(path string) (*recordset.RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSalesCSV(f)
}

var salesColumns = []string{
	"transaction_id", "date", "product_id", "customer_id",
	"quantity", "unit_price", "total_amount", "region",
}

var sampleRegions = []string{"North", "South", "East", "West"}

// SampleSales generates the deterministic 100-row sample used when no input
// file is configured: daily dates from 2025-01-01, ten products, twenty-five
// customers, four regions. Values are strings, same as a CSV read would
// produce.
func SampleSales() *recordset.RecordSet {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rs := recordset.New(salesColumns...)
	for i := 0; i < 100; i++ {
		qty := int64(i%5) + 1
		price := 10 + float64(i%50)*2.5
		rs.AppendRow([]any{
			fmt.Sprintf("TXN%06d", i+1),
			start.AddDate(0, 0, i).Format(recordset.DateLayout),
			fmt.Sprintf("PROD%03d", i%10+1),
			fmt.Sprintf("CUST%04d", i%25+1),
			strconv.FormatInt(qty, 10),
			strconv.FormatFloat(price, 'f', -1, 64),
			strconv.FormatFloat(float64(qty)*price, 'f', -1, 64),
			sampleRegions[i%4],
		})
	}
	return rs
}
