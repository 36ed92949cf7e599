// Package all registers every storage backend. Import it for side effects
// from binaries that select a backend at runtime.
package all

import (
	_ "analytics/internal/storage/mssql"
	_ "analytics/internal/storage/postgres"
	_ "analytics/internal/storage/sqlite"
)
