package transform

import (
	"fmt"
	"sort"
	"time"

	"analytics/internal/recordset"
)

// TransformSales derives the sales star schema from a validated record set:
// time, product and customer dimensions plus the fact table referencing them
// by surrogate key.
func TransformSales(rs *recordset.RecordSet) (*TableSet, error) {
	dimTime, dateKeys := buildTimeDimension(rs)
	dimProduct, productKeys, err := buildProductDimension(rs)
	if err != nil {
		return nil, err
	}
	dimCustomer, customerKeys := buildCustomerDimension(rs)

	fact, err := buildFactSales(rs, dateKeys, productKeys, customerKeys)
	if err != nil {
		return nil, err
	}

	ts := &TableSet{}
	ts.add(TableDimTime, "date", dimTime)
	ts.add(TableDimProduct, "product_id", dimProduct)
	ts.add(TableDimCustomer, "customer_id", dimCustomer)
	ts.add(TableFactSales, "transaction_id", fact)
	return ts, nil
}

// buildTimeDimension assigns date_id by first-seen order of distinct dates
// and derives the calendar attributes. Day-of-week uses the Monday=0
// convention; Saturday and Sunday (5, 6) are weekend days.
func buildTimeDimension(rs *recordset.RecordSet) (*recordset.RecordSet, map[string]int64) {
	out := recordset.New("date_id", "date", "year", "month", "quarter", "day_of_week", "month_name", "is_weekend")
	keys := make(map[string]int64)

	for _, v := range rs.Distinct("date") {
		d := v.(time.Time)
		id := int64(len(keys) + 1)
		keys[recordset.NormalizeKey(d)] = id

		dow := int64((int(d.Weekday()) + 6) % 7)
		out.AppendRow([]any{
			id,
			d,
			int64(d.Year()),
			int64(d.Month()),
			int64((int(d.Month())-1)/3 + 1),
			dow,
			d.Month().String(),
			dow >= 5,
		})
	}
	return out, keys
}

func buildProductDimension(rs *recordset.RecordSet) (*recordset.RecordSet, map[string]int64, error) {
	out := recordset.New("product_key", "product_id", "product_category")
	keys := make(map[string]int64)

	for _, v := range rs.Distinct("product_id") {
		id := fmt.Sprint(v)
		category, err := productCategory(id)
		if err != nil {
			return nil, nil, err
		}
		key := int64(len(keys) + 1)
		keys[recordset.NormalizeKey(v)] = key
		out.AppendRow([]any{key, id, category})
	}
	return out, keys, nil
}

// productCategory buckets a product by the numeric suffix of its identifier:
// Category_<suffix mod 3 + 1>.
func productCategory(productID string) (string, error) {
	end := len(productID)
	start := end
	for start > 0 && productID[start-1] >= '0' && productID[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", fmt.Errorf("product_id %q has no numeric suffix", productID)
	}
	var n int64
	for _, c := range productID[start:end] {
		n = n*10 + int64(c-'0')
	}
	return fmt.Sprintf("Category_%d", n%3+1), nil
}

// buildCustomerDimension keeps exactly one row per distinct customer. The
// retained region comes from the customer's earliest transaction (stable date
// sort before grouping); surrogate keys are assigned in ascending customer_id
// order, the resulting group order.
func buildCustomerDimension(rs *recordset.RecordSet) (*recordset.RecordSet, map[string]int64) {
	sorted := rs.SortedBy("date", func(a, b any) bool {
		return a.(time.Time).Before(b.(time.Time))
	})

	custIx := sorted.ColumnIndex("customer_id")
	regionIx := sorted.ColumnIndex("region")

	firstRegion := make(map[string]any)
	var ids []string
	for _, row := range sorted.Rows {
		id := recordset.NormalizeKey(row[custIx])
		if _, seen := firstRegion[id]; seen {
			continue
		}
		var region any
		if regionIx >= 0 {
			region = row[regionIx]
		}
		if region == nil {
			region = ""
		}
		firstRegion[id] = region
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := recordset.New("customer_key", "customer_id", "region")
	keys := make(map[string]int64, len(ids))
	for i, id := range ids {
		key := int64(i + 1)
		keys[id] = key
		out.AppendRow([]any{key, id, firstRegion[id]})
	}
	return out, keys
}

func buildFactSales(rs *recordset.RecordSet, dateKeys, productKeys, customerKeys map[string]int64) (*recordset.RecordSet, error) {
	txnIx := rs.ColumnIndex("transaction_id")
	dateIx := rs.ColumnIndex("date")
	prodIx := rs.ColumnIndex("product_id")
	custIx := rs.ColumnIndex("customer_id")
	qtyIx := rs.ColumnIndex("quantity")
	priceIx := rs.ColumnIndex("unit_price")
	totalIx := rs.ColumnIndex("total_amount")

	out := recordset.New("transaction_id", "date_id", "product_key", "customer_key",
		"quantity", "unit_price", "revenue", "cost", "profit", "profit_margin")

	for _, row := range rs.Rows {
		dateID, ok := dateKeys[recordset.NormalizeKey(row[dateIx])]
		if !ok {
			return nil, &IntegrityError{Table: TableDimTime, Key: recordset.NormalizeKey(row[dateIx])}
		}
		productKey, ok := productKeys[recordset.NormalizeKey(row[prodIx])]
		if !ok {
			return nil, &IntegrityError{Table: TableDimProduct, Key: recordset.NormalizeKey(row[prodIx])}
		}
		customerKey, ok := customerKeys[recordset.NormalizeKey(row[custIx])]
		if !ok {
			return nil, &IntegrityError{Table: TableDimCustomer, Key: recordset.NormalizeKey(row[custIx])}
		}

		revenue := row[totalIx].(float64)
		cost := revenue * 0.6
		profit := revenue - cost
		var margin any
		if revenue != 0 {
			margin = profit / revenue * 100
		}

		out.AppendRow([]any{
			row[txnIx], dateID, productKey, customerKey,
			row[qtyIx], row[priceIx], revenue, cost, profit, margin,
		})
	}
	return out, nil
}
