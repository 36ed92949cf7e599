// Package validate implements the cleaning pipeline that turns a raw record
// set into a consistent one: schema check, null audit, deduplication, type
// enforcement and business rules, in that fixed order. Each check appends one
// entry to a Report that is persisted exactly once per call.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"analytics/internal/recordset"
	"analytics/internal/source"
)

// Run validates a raw record set for the given source kind.
//
// On success it returns the cleaned set and the persisted report. On failure
// the report carries the error, is persisted in its interrupted state, and the
// returned error is a *ValidationError wrapping the cause; no partial output
// is returned.
//
// store may be nil, in which case the report is not persisted (used by pure
// in-memory tests).
func Run(rs *recordset.RecordSet, kind source.Kind, store *Store) (*recordset.RecordSet, *Report, error) {
	rep := NewReport(kind, time.Now())
	rep.InitialCount = rs.Len()

	clean, err := runChecks(rs, kind, rep)
	if err != nil {
		rep.AddError(err.Error())
		persist(store, rep)
		return nil, rep, &ValidationError{Kind: kind, Err: err}
	}

	rep.FinalCount = clean.Len()
	persist(store, rep)
	return clean, rep, nil
}

func persist(store *Store, rep *Report) {
	if store == nil {
		return
	}
	// Report persistence must not mask the validation outcome.
	if _, err := store.Save(rep); err == nil {
		_ = store.ExportSummary()
	}
}

// rules is the per-kind behavior behind the shared check sequence. Sales and
// user-profile data differ in how nulls are remediated, which columns are
// typed, and what the final domain filter is.
type rules interface {
	handleNulls(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet
	enforceTypes(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet
	applyBusinessRules(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet
}

func rulesFor(kind source.Kind) rules {
	switch kind {
	case source.Sales:
		return salesRules{}
	default:
		return userRules{}
	}
}

func runChecks(rs *recordset.RecordSet, kind source.Kind, rep *Report) (*recordset.RecordSet, error) {
	// 1. Schema: fatal, no partial cleaning.
	if err := checkSchema(rs, kind); err != nil {
		return nil, err
	}
	rep.AddCheck("Schema Validation", "")

	r := rulesFor(kind)

	// 2. Null audit + per-kind remediation.
	out := auditNulls(rs, r, rep)

	// 3. Deduplication on the primary identifier, first occurrence wins.
	out = dedupe(out, kind.PrimaryID(), rep)

	// 4. Type enforcement; rows failing coercion are dropped and counted.
	out = r.enforceTypes(out, rep)

	// 5. Domain-specific final filter.
	out = r.applyBusinessRules(out, rep)

	return out, nil
}

func checkSchema(rs *recordset.RecordSet, kind source.Kind) error {
	var missing []string
	for _, c := range kind.RequiredColumns() {
		if !rs.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Kind: kind, Missing: missing}
	}
	return nil
}

func auditNulls(rs *recordset.RecordSet, r rules, rep *Report) *recordset.RecordSet {
	nulls := rs.NullCounts()
	if len(nulls) == 0 {
		rep.AddCheck("Null Check", "No null values found")
		return rs
	}
	rep.AddWarning("Null values detected: " + formatNullCounts(nulls))
	return r.handleNulls(rs, rep)
}

func formatNullCounts(nulls map[string]int) string {
	cols := make([]string, 0, len(nulls))
	for c := range nulls {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s=%d", c, nulls[c]))
	}
	return strings.Join(parts, ", ")
}

func dedupe(rs *recordset.RecordSet, key string, rep *Report) *recordset.RecordSet {
	ix := rs.ColumnIndex(key)
	seen := make(map[string]struct{}, rs.Len())
	out := rs.Filter(func(row []any) bool {
		k := recordset.NormalizeKey(row[ix])
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	rep.AddCheck("Deduplication", fmt.Sprintf("Removed %d duplicate records", rs.Len()-out.Len()))
	return out
}

// ---- sales ----

type salesRules struct{}

var salesKeyColumns = []string{"transaction_id", "product_id", "customer_id"}

func (salesRules) handleNulls(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet {
	ixs := make([]int, len(salesKeyColumns))
	for i, c := range salesKeyColumns {
		ixs[i] = rs.ColumnIndex(c)
	}
	out := rs.Filter(func(row []any) bool {
		for _, ix := range ixs {
			if row[ix] == nil {
				return false
			}
		}
		return true
	})
	rep.AddCheck("Null Handling", fmt.Sprintf("Removed %d rows with null key fields", rs.Len()-out.Len()))
	return out
}

func (salesRules) enforceTypes(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet {
	dateIx := rs.ColumnIndex("date")
	qtyIx := rs.ColumnIndex("quantity")
	priceIx := rs.ColumnIndex("unit_price")
	totalIx := rs.ColumnIndex("total_amount")

	out := recordset.New(rs.Columns...)
	for _, row := range rs.Rows {
		d, errD := recordset.CoerceDate(valueAt(row, dateIx))
		q, errQ := recordset.CoerceInt(valueAt(row, qtyIx))
		p, errP := recordset.CoerceFloat(valueAt(row, priceIx))
		t, errT := recordset.CoerceFloat(valueAt(row, totalIx))
		if errD != nil || errQ != nil || errP != nil || errT != nil {
			continue
		}
		cp := append([]any(nil), row...)
		cp[dateIx], cp[qtyIx], cp[priceIx], cp[totalIx] = d, q, p, t
		out.Rows = append(out.Rows, cp)
	}
	if removed := rs.Len() - out.Len(); removed > 0 {
		rep.AddWarning(fmt.Sprintf("Removed %d rows due to type conversion issues", removed))
	}
	rep.AddCheck("Type Enforcement", "")
	return out
}

func (salesRules) applyBusinessRules(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet {
	qtyIx := rs.ColumnIndex("quantity")
	priceIx := rs.ColumnIndex("unit_price")
	totalIx := rs.ColumnIndex("total_amount")

	out := rs.Filter(func(row []any) bool {
		return row[qtyIx].(int64) > 0 && row[priceIx].(float64) > 0
	})
	// Ingested totals are not trusted; the recomputed value supersedes them.
	for _, row := range out.Rows {
		row[totalIx] = float64(row[qtyIx].(int64)) * row[priceIx].(float64)
	}
	rep.AddCheck("Business Rules",
		fmt.Sprintf("Removed %d rows with invalid quantity/price; recalculated totals", rs.Len()-out.Len()))
	return out
}

// ---- user profiles ----

type userRules struct{}

var userOptionalFill = []string{"phone", "website"}

func (userRules) handleNulls(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet {
	out := rs.Clone()
	for _, c := range userOptionalFill {
		ix := out.ColumnIndex(c)
		if ix < 0 {
			continue
		}
		for _, row := range out.Rows {
			if row[ix] == nil {
				row[ix] = "N/A"
			}
		}
	}
	rep.AddCheck("Null Handling", "Filled defaults for optional fields")
	return out
}

func (userRules) enforceTypes(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet {
	idIx := rs.ColumnIndex("id")
	out := recordset.New(rs.Columns...)
	for _, row := range rs.Rows {
		id, err := recordset.CoerceInt(valueAt(row, idIx))
		if err != nil {
			continue
		}
		cp := append([]any(nil), row...)
		cp[idIx] = id
		out.Rows = append(out.Rows, cp)
	}
	if removed := rs.Len() - out.Len(); removed > 0 {
		rep.AddWarning(fmt.Sprintf("Removed %d rows with invalid ID", removed))
	}
	rep.AddCheck("Type Enforcement", "")
	return out
}

func (userRules) applyBusinessRules(rs *recordset.RecordSet, rep *Report) *recordset.RecordSet {
	emailIx := rs.ColumnIndex("email")
	out := rs.Filter(func(row []any) bool {
		s, ok := row[emailIx].(string)
		return ok && strings.Contains(s, "@")
	})
	rep.AddCheck("Business Rules", fmt.Sprintf("Removed %d rows with invalid email", rs.Len()-out.Len()))
	return out
}

// valueAt treats nil cells as coercion failures without panicking on them.
func valueAt(row []any, ix int) any {
	if ix < 0 {
		return nil
	}
	return row[ix]
}
