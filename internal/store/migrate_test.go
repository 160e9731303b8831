package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHistory_NoneBackend(t *testing.T) {
	err := MigrateHistory(schema.NoneBackend, "", -1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
}

func TestMigrateHistory_Unsupported(t *testing.T) {
	assert.Error(t, MigrateHistory("oracle", "", -1))
}

func TestMigrateHistory_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history_migration.db")

	require.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)

	// Already at the latest version
	assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))

	// Step down, roll back everything, and come back up
	assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 2))
	assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 0))
	assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 3))

	// The migrated schema is usable by the store
	hs, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()
	_, err = hs.GetStatus()
	assert.NoError(t, err)
}

func TestMigrateHistory_AfterStoreCreatedTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history_existing.db")

	hs, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	require.NoError(t, hs.Close())

	assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))
}

func TestMigrationDirsEmbedded(t *testing.T) {
	for backend, dir := range migrationDirs {
		entries, err := migrationsFS.ReadDir(dir)
		require.NoError(t, err, backend)
		assert.Len(t, entries, 6, "backend %s should have three up/down pairs", backend)
	}
}
