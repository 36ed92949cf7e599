package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"analytics/internal/recordset"
)

// DefaultUsersURL is the public user-profile feed used when none is
// configured.
const DefaultUsersURL = "https://jsonplaceholder.typicode.com/users"

var userFeedColumns = []string{
	"id", "name", "username", "email", "phone", "website",
	"city", "street", "zipcode", "company_name",
}

// FetchUsers retrieves the user-profile feed over HTTP and flattens it. A nil
// client gets a 10-second timeout default.
func FetchUsers(ctx context.Context, client *http.Client, url string) (*recordset.RecordSet, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if url == "" {
		url = DefaultUsersURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("users feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("users feed: unexpected status %s", resp.Status)
	}
	return ReadUsersJSON(resp.Body)
}

// ReadUsersJSON decodes a JSON array of user-profile objects. Nested address
// fields flatten to city/street/zipcode, company flattens to company_name,
// and geo coordinates are dropped.
func ReadUsersJSON(r io.Reader) (*recordset.RecordSet, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("users feed: decode: %w", err)
	}

	rs := recordset.New(userFeedColumns...)
	for _, obj := range raw {
		if obj == nil {
			continue
		}
		row := make([]any, len(userFeedColumns))
		for i, col := range userFeedColumns {
			switch col {
			case "city", "street", "zipcode":
				row[i] = scalar(nested(obj, "address", col))
			case "company_name":
				row[i] = scalar(nested(obj, "company", "name"))
			default:
				row[i] = scalar(obj[col])
			}
		}
		rs.AppendRow(row)
	}
	return rs, nil
}

func nested(obj map[string]any, field, key string) any {
	m, ok := obj[field].(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// scalar normalizes a decoded JSON value into the record-set cell types the
// validators expect: strings stay strings (empty becomes nil), numbers become
// their decimal text form, objects and arrays are discarded.
func scalar(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return t
	case json.Number:
		return t.String()
	case bool:
		return t
	default:
		return nil
	}
}
