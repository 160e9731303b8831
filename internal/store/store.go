// Package store persists prediction history in SQL databases.
package store

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
)

// Table names for prediction history.
const (
	runsTable        = "pancstage_prediction_runs"
	predictionsTable = "pancstage_predictions"
	migrationsTable  = "schema_migrations"
)

// historyTables lists the history tables in creation order.
var historyTables = []string{runsTable, predictionsTable}

// HistoryStoreManager holds the history store for the running process.
type HistoryStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	history      contract.HistoryStore
}

var _ contract.StoreManager = &HistoryStoreManager{} // Compile-time check

// GetHistoryStore returns the history store, or nil when tracking is disabled.
func (mgr *HistoryStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName guards identifiers that are interpolated into SQL.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern %s)", name, tableNamePattern)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// placeholders returns n bind parameters in the backend's syntax, starting at from.
func placeholders(backend schema.DatabaseBackend, from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if backend == schema.PostgreSQLBackend {
			parts[i] = fmt.Sprintf("$%d", from+i)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// driverName maps a backend to its database/sql driver.
func driverName(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", backend)
	}
}

// formatTime converts a time.Time to the appropriate format for the backend.
// SQLite has no native timestamp type so times are stored as RFC3339 text.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t
}

// timeColumn scans a timestamp column on any backend.
type timeColumn struct {
	backend schema.DatabaseBackend
	text    *string
	native  *time.Time
}

func newTimeColumn(backend schema.DatabaseBackend) *timeColumn {
	return &timeColumn{backend: backend}
}

// dest returns the scan destination for the column.
func (c *timeColumn) dest() any {
	if c.backend == schema.SQLiteBackend {
		return &c.text
	}
	return &c.native
}

// value returns the parsed time, or nil for SQL NULL.
func (c *timeColumn) value() (*time.Time, error) {
	if c.backend != schema.SQLiteBackend {
		return c.native, nil
	}
	if c.text == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *c.text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse time %q: %w", *c.text, err)
	}
	return &t, nil
}
