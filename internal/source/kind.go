// Package source defines the two ingestion source kinds and the per-kind
// schema facts (required columns, primary identifier) the pipeline branches
// on. Keeping this a closed enum avoids string-keyed dispatch in the stages.
package source

// Kind identifies one of the two supported data sources.
type Kind int

const (
	// Sales is the tabular sales-transaction source.
	Sales Kind = iota
	// UserProfile is the user-profile feed.
	UserProfile
)

// Label is the short name used in report files, snapshot names and audit rows.
func (k Kind) Label() string {
	switch k {
	case Sales:
		return "sales"
	case UserProfile:
		return "users"
	default:
		return "unknown"
	}
}

func (k Kind) String() string { return k.Label() }

// RequiredColumns lists the columns a raw record set must carry to pass the
// schema check. Optional columns (sales region, user phone/website/...) are
// not listed.
func (k Kind) RequiredColumns() []string {
	switch k {
	case Sales:
		return []string{
			"transaction_id", "date", "product_id", "customer_id",
			"quantity", "unit_price", "total_amount",
		}
	case UserProfile:
		return []string{"id", "name", "username", "email"}
	default:
		return nil
	}
}

// PrimaryID is the column deduplication keys on.
func (k Kind) PrimaryID() string {
	switch k {
	case Sales:
		return "transaction_id"
	case UserProfile:
		return "id"
	default:
		return ""
	}
}
