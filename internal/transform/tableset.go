// Package transform reshapes validated record sets into the star-schema
// analytical model: dimension tables with surrogate keys, the sales fact
// table, and the derived summary statistics.
package transform

import (
	"fmt"

	"analytics/internal/recordset"
)

// Output table names. These match the warehouse schema.
const (
	TableDimTime     = "dim_time"
	TableDimProduct  = "dim_product"
	TableDimCustomer = "dim_customer"
	TableDimUser     = "dim_user"
	TableFactSales   = "fact_sales"
)

// Table is one output table together with the natural-key column the loader
// deduplicates on against persisted storage.
type Table struct {
	Name       string
	NaturalKey string
	Data       *recordset.RecordSet
}

// TableSet is the ordered output of one transform call. Dimensions precede
// the fact table so loading in order never violates foreign keys.
type TableSet struct {
	Tables []Table
}

// Get returns the named table, or nil.
func (ts *TableSet) Get(name string) *Table {
	for i := range ts.Tables {
		if ts.Tables[i].Name == name {
			return &ts.Tables[i]
		}
	}
	return nil
}

func (ts *TableSet) add(name, naturalKey string, data *recordset.RecordSet) {
	ts.Tables = append(ts.Tables, Table{Name: name, NaturalKey: naturalKey, Data: data})
}

// IntegrityError reports a fact row whose dimension reference did not resolve.
// Since dimensions are derived from the same record set as the fact table,
// this indicates a transform contract violation, not bad input.
type IntegrityError struct {
	Table string
	Key   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("fact row references missing %s key %q", e.Table, e.Key)
}
