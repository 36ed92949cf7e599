package recordset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date form used for keys and snapshots.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CoerceDate converts a cell to a calendar date.
//
// Already-typed time.Time values pass through unchanged, so coercing an
// already-coerced set is the identity.
func CoerceDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", t)
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %T to date", v)
	}
}

// CoerceInt converts a cell to int64. Integral floats (and strings like "5.0")
// are accepted; fractional values are rejected.
func CoerceInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("non-integral value %v", t)
		}
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("unparseable integer %q", t)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to integer", v)
	}
}

// CoerceFloat converts a cell to float64.
func CoerceFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable number %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to number", v)
	}
}

// NormalizeKey converts a natural-key value to a canonical string form,
// suitable for in-memory lookup maps and for set-difference against persisted
// keys. Backends must not assume a particular underlying type for keys; this
// helper keeps lookups consistent across the transform and every storage
// backend.
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case time.Time:
		return t.Format(DateLayout)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
