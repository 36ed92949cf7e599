package transform

import (
	"strings"

	"analytics/internal/recordset"
)

// userColumns is the fixed output order of the user dimension. Columns absent
// from the input are silently omitted.
var userColumns = []string{
	"user_key", "id", "full_name", "username", "email", "email_domain",
	"phone", "website", "company_name", "city", "street", "zipcode",
	"name_length",
}

// TransformUsers derives the single user dimension: surrogate key by row
// position plus the computed full_name, name_length and email_domain fields.
func TransformUsers(rs *recordset.RecordSet) (*TableSet, error) {
	wide := rs.Clone()
	appendColumn(wide, "user_key", func(i int, _ []any) any { return int64(i + 1) })

	nameIx := wide.ColumnIndex("name")
	appendColumn(wide, "full_name", func(_ int, row []any) any { return row[nameIx] })
	appendColumn(wide, "name_length", func(_ int, row []any) any {
		s, ok := row[nameIx].(string)
		if !ok {
			return nil
		}
		return int64(len([]rune(s)))
	})

	emailIx := wide.ColumnIndex("email")
	appendColumn(wide, "email_domain", func(_ int, row []any) any {
		s, ok := row[emailIx].(string)
		if !ok {
			return nil
		}
		parts := strings.Split(s, "@")
		if len(parts) < 2 {
			return nil
		}
		return parts[1]
	})

	ts := &TableSet{}
	ts.add(TableDimUser, "id", wide.Select(userColumns...))
	return ts, nil
}

// appendColumn widens the set in place with a derived column.
func appendColumn(rs *recordset.RecordSet, name string, derive func(i int, row []any) any) {
	rs.Columns = append(rs.Columns, name)
	for i := range rs.Rows {
		rs.Rows[i] = append(rs.Rows[i], derive(i, rs.Rows[i]))
	}
}
