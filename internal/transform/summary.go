package transform

import (
	"fmt"
	"math"

	"analytics/internal/source"
)

// SalesSummary aggregates the fact table for reporting. Monetary values are
// rounded to two decimals; counts and quantities stay integral.
type SalesSummary struct {
	TotalTransactions   int     `json:"total_transactions"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalProfit         float64 `json:"total_profit"`
	AvgTransactionValue float64 `json:"avg_transaction_value"`
	TotalQuantitySold   int64   `json:"total_quantity_sold"`
	AvgProfitMargin     float64 `json:"avg_profit_margin"`
}

// UserSummary aggregates the user dimension for reporting.
type UserSummary struct {
	TotalUsers    int `json:"total_users"`
	UniqueDomains int `json:"unique_domains"`
	UniqueCities  int `json:"unique_cities"`
}

// Summarize dispatches to the kind-specific aggregate.
func Summarize(ts *TableSet, kind source.Kind) (any, error) {
	switch kind {
	case source.Sales:
		return SummarizeSales(ts)
	case source.UserProfile:
		return SummarizeUsers(ts)
	default:
		return nil, fmt.Errorf("unsupported source kind %v", kind)
	}
}

// SummarizeSales computes the fact-table aggregates. The mean profit margin
// skips undefined (nil) margins.
func SummarizeSales(ts *TableSet) (SalesSummary, error) {
	t := ts.Get(TableFactSales)
	if t == nil {
		return SalesSummary{}, fmt.Errorf("table set has no %s", TableFactSales)
	}
	fact := t.Data

	revIx := fact.ColumnIndex("revenue")
	profitIx := fact.ColumnIndex("profit")
	qtyIx := fact.ColumnIndex("quantity")
	marginIx := fact.ColumnIndex("profit_margin")

	var revenue, profit, marginSum float64
	var quantity int64
	var marginN int
	for _, row := range fact.Rows {
		revenue += row[revIx].(float64)
		profit += row[profitIx].(float64)
		quantity += row[qtyIx].(int64)
		if m, ok := row[marginIx].(float64); ok {
			marginSum += m
			marginN++
		}
	}

	s := SalesSummary{
		TotalTransactions: fact.Len(),
		TotalRevenue:      round2(revenue),
		TotalProfit:       round2(profit),
		TotalQuantitySold: quantity,
	}
	if fact.Len() > 0 {
		s.AvgTransactionValue = round2(revenue / float64(fact.Len()))
	}
	if marginN > 0 {
		s.AvgProfitMargin = round2(marginSum / float64(marginN))
	}
	return s, nil
}

// SummarizeUsers counts users, distinct email domains, and distinct cities
// (zero when the feed carried no city column).
func SummarizeUsers(ts *TableSet) (UserSummary, error) {
	t := ts.Get(TableDimUser)
	if t == nil {
		return UserSummary{}, fmt.Errorf("table set has no %s", TableDimUser)
	}
	dim := t.Data

	return UserSummary{
		TotalUsers:    dim.Len(),
		UniqueDomains: len(dim.Distinct("email_domain")),
		UniqueCities:  len(dim.Distinct("city")),
	}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
