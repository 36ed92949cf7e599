package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const usersPayload = `[
  {
    "id": 1,
    "name": "Leanne Graham",
    "username": "Bret",
    "email": "Sincere@april.biz",
    "address": {
      "street": "Kulas Light",
      "city": "Gwenborough",
      "zipcode": "92998-3874",
      "geo": {"lat": "-37.3159", "lng": "81.1496"}
    },
    "phone": "1-770-736-8031",
    "website": "hildegard.org",
    "company": {"name": "Romaguera-Crona", "catchPhrase": "x", "bs": "y"}
  },
  {
    "id": 2,
    "name": "Ervin Howell",
    "username": "Antonette",
    "email": "Shanna@melissa.tv",
    "phone": "",
    "website": "anastasia.net"
  }
]`

func TestReadUsersJSONFlattens(t *testing.T) {
	rs, err := ReadUsersJSON(strings.NewReader(usersPayload))
	if err != nil {
		t.Fatalf("ReadUsersJSON: %v", err)
	}

	if rs.Len() != 2 {
		t.Fatalf("rows = %d, want 2", rs.Len())
	}
	if got := rs.Value(0, "id"); got != "1" {
		t.Fatalf("id = %v (%T)", got, got)
	}
	if got := rs.Value(0, "city"); got != "Gwenborough" {
		t.Fatalf("city = %v", got)
	}
	if got := rs.Value(0, "street"); got != "Kulas Light" {
		t.Fatalf("street = %v", got)
	}
	if got := rs.Value(0, "zipcode"); got != "92998-3874" {
		t.Fatalf("zipcode = %v", got)
	}
	if got := rs.Value(0, "company_name"); got != "Romaguera-Crona" {
		t.Fatalf("company_name = %v", got)
	}
	// geo coordinates are dropped entirely
	if rs.HasColumn("geo") {
		t.Fatalf("geo column survived flattening")
	}

	// second record has no address/company: cells nil, empty phone nil
	if got := rs.Value(1, "city"); got != nil {
		t.Fatalf("missing city = %v, want nil", got)
	}
	if got := rs.Value(1, "phone"); got != nil {
		t.Fatalf("empty phone = %v, want nil", got)
	}
}

func TestReadUsersJSONRejectsNonArray(t *testing.T) {
	if _, err := ReadUsersJSON(strings.NewReader(`{"id": 1}`)); err == nil {
		t.Fatalf("expected error for non-array payload")
	}
}

func TestFetchUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usersPayload))
	}))
	defer srv.Close()

	rs, err := FetchUsers(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("FetchUsers: %v", err)
	}
	if rs.Len() != 2 {
		t.Fatalf("rows = %d", rs.Len())
	}
}

func TestFetchUsersNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := FetchUsers(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatalf("expected error on 503")
	}
}
