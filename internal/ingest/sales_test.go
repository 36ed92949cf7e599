package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadSalesCSVNormalizesHeaders(t *testing.T) {
	in := "\uFEFFTransaction ID,Date,Product ID\nTXN001,2025-01-01,PROD001\n"

	rs, err := ReadSalesCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSalesCSV: %v", err)
	}

	want := []string{"transaction_id", "date", "product_id"}
	if !reflect.DeepEqual(rs.Columns, want) {
		t.Fatalf("columns = %v, want %v", rs.Columns, want)
	}
	if rs.Len() != 1 {
		t.Fatalf("rows = %d", rs.Len())
	}
	if got := rs.Value(0, "transaction_id"); got != "TXN001" {
		t.Fatalf("transaction_id = %v", got)
	}
}

func TestReadSalesCSVEmptyCellsBecomeNil(t *testing.T) {
	in := "a,b,c\n1,,3\n,2,\n"

	rs, err := ReadSalesCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSalesCSV: %v", err)
	}
	if got := rs.Value(0, "b"); got != nil {
		t.Fatalf("empty cell = %v, want nil", got)
	}
	if got := rs.Value(1, "a"); got != nil {
		t.Fatalf("empty cell = %v, want nil", got)
	}
	if got := rs.Value(1, "b"); got != "2" {
		t.Fatalf("cell = %v", got)
	}
}

func TestReadSalesCSVShortRows(t *testing.T) {
	in := "a,b,c\n1,2\n"

	rs, err := ReadSalesCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSalesCSV: %v", err)
	}
	if got := rs.Value(0, "c"); got != nil {
		t.Fatalf("missing trailing cell = %v, want nil", got)
	}
}

func TestSampleSales(t *testing.T) {
	rs := SampleSales()

	if rs.Len() != 100 {
		t.Fatalf("sample has %d rows, want 100", rs.Len())
	}
	if got := rs.Value(0, "transaction_id"); got != "TXN000001" {
		t.Fatalf("first transaction_id = %v", got)
	}
	if got := rs.Value(99, "transaction_id"); got != "TXN000100" {
		t.Fatalf("last transaction_id = %v", got)
	}
	if got := rs.Value(0, "date"); got != "2025-01-01" {
		t.Fatalf("first date = %v", got)
	}
	// Dates run daily without wrapping inside January.
	if got := rs.Value(99, "date"); got != "2025-04-10" {
		t.Fatalf("last date = %v", got)
	}
	if got := rs.Value(0, "product_id"); got != "PROD001" {
		t.Fatalf("product_id = %v", got)
	}
	if got := rs.Value(24, "customer_id"); got != "CUST0025" {
		t.Fatalf("customer_id = %v", got)
	}
	if got := rs.Value(25, "customer_id"); got != "CUST0001" {
		t.Fatalf("customer_id cycle = %v", got)
	}
	if got := rs.Value(0, "region"); got != "North" {
		t.Fatalf("region = %v", got)
	}

	// total_amount is always quantity * unit_price.
	if got := rs.Value(3, "quantity"); got != "4" {
		t.Fatalf("quantity = %v", got)
	}
	if got := rs.Value(3, "unit_price"); got != "17.5" {
		t.Fatalf("unit_price = %v", got)
	}
	if got := rs.Value(3, "total_amount"); got != "70" {
		t.Fatalf("total_amount = %v", got)
	}
}

func TestSampleSalesIsDeterministic(t *testing.T) {
	a, b := SampleSales(), SampleSales()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two generated samples differ")
	}
}
