package transform

import (
	"testing"

	"analytics/internal/recordset"
	"analytics/internal/source"
)

func recordsetWithUsers(t *testing.T) *recordset.RecordSet {
	t.Helper()
	rs := recordset.New("id", "name", "username", "email", "city")
	rs.AppendRow([]any{int64(1), "Ann Lee", "ann", "ann@b.com", "Rome"})
	rs.AppendRow([]any{int64(2), "Bo Ek", "bo", "bo@b.com", "Oslo"})
	rs.AppendRow([]any{int64(3), "Cy Dole", "cy", "cy@c.org", "Rome"})
	return rs
}

func TestSummarizeSales(t *testing.T) {
	ts, err := TransformSales(validatedSales())
	if err != nil {
		t.Fatalf("TransformSales: %v", err)
	}

	got, err := SummarizeSales(ts)
	if err != nil {
		t.Fatalf("SummarizeSales: %v", err)
	}

	if got.TotalTransactions != 3 {
		t.Fatalf("TotalTransactions = %d", got.TotalTransactions)
	}
	if got.TotalRevenue != 70.0 {
		t.Fatalf("TotalRevenue = %v, want 70", got.TotalRevenue)
	}
	if got.TotalProfit != 28.0 {
		t.Fatalf("TotalProfit = %v, want 28 (40%% of revenue)", got.TotalProfit)
	}
	if got.AvgTransactionValue != 23.33 {
		t.Fatalf("AvgTransactionValue = %v, want 23.33", got.AvgTransactionValue)
	}
	if got.TotalQuantitySold != 6 {
		t.Fatalf("TotalQuantitySold = %d", got.TotalQuantitySold)
	}
	if got.AvgProfitMargin != 40.0 {
		t.Fatalf("AvgProfitMargin = %v, want 40", got.AvgProfitMargin)
	}
}

func TestSummarizeSalesSkipsNilMargins(t *testing.T) {
	rs := validatedSales()
	rs.AppendRow([]any{"TXN004", date(2025, 1, 6), "PROD001", "C2", int64(1), 1.0, 0.0, "East"})

	ts, err := TransformSales(rs)
	if err != nil {
		t.Fatalf("TransformSales: %v", err)
	}
	got, err := SummarizeSales(ts)
	if err != nil {
		t.Fatalf("SummarizeSales: %v", err)
	}

	// The zero-revenue row has no defined margin and must not drag the mean.
	if got.AvgProfitMargin != 40.0 {
		t.Fatalf("AvgProfitMargin = %v, want 40", got.AvgProfitMargin)
	}
}

func TestSummarizeUsers(t *testing.T) {
	rs := recordsetWithUsers(t)
	ts, err := TransformUsers(rs)
	if err != nil {
		t.Fatalf("TransformUsers: %v", err)
	}

	got, err := SummarizeUsers(ts)
	if err != nil {
		t.Fatalf("SummarizeUsers: %v", err)
	}
	if got.TotalUsers != 3 {
		t.Fatalf("TotalUsers = %d", got.TotalUsers)
	}
	if got.UniqueDomains != 2 {
		t.Fatalf("UniqueDomains = %d, want 2", got.UniqueDomains)
	}
	if got.UniqueCities != 2 {
		t.Fatalf("UniqueCities = %d, want 2", got.UniqueCities)
	}
}

func TestSummarizeDispatch(t *testing.T) {
	ts, err := TransformSales(validatedSales())
	if err != nil {
		t.Fatalf("TransformSales: %v", err)
	}

	sum, err := Summarize(ts, source.Sales)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if _, ok := sum.(SalesSummary); !ok {
		t.Fatalf("Summarize returned %T", sum)
	}

	if _, err := Summarize(ts, source.UserProfile); err == nil {
		t.Fatalf("expected error summarizing a sales set as users")
	}
}
