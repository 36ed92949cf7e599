package validate

import (
	"fmt"
	"strings"

	"analytics/internal/source"
)

// SchemaError reports required columns missing from a raw record set. It is
// fatal: no partial cleaning is attempted.
type SchemaError struct {
	Kind    source.Kind
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ValidationError wraps any failure raised during the check pipeline. The
// report is persisted in its interrupted state before this is returned; no
// partial output accompanies it.
type ValidationError struct {
	Kind source.Kind
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
