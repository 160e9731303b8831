package store

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetManager() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &HistoryStoreManager{}
}

func TestInitStores(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		resetManager()
		dbPath := filepath.Join(t.TempDir(), "history.db")

		require.NoError(t, InitStores(schema.SQLiteBackend, dbPath))
		assert.NotNil(t, Manager.GetHistoryStore())

		// Repeated initialization is a no-op
		assert.NoError(t, InitStores(schema.MySQLBackend, "bogus"))

		CloseStores()
		CloseStores()
		_, err := os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("disabled", func(t *testing.T) {
		resetManager()
		require.NoError(t, InitStores("", ""))
		assert.Nil(t, Manager.GetHistoryStore())
		CloseStores()
	})

	t.Run("failure", func(t *testing.T) {
		resetManager()
		err := InitStores("oracle", "")
		assert.Error(t, err)
		assert.Nil(t, Manager.GetHistoryStore())
	})
}

func TestClearHistory(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "history.db")
		hs, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, hs.Close())

		require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		// Missing file is fine
		assert.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
	})

	t.Run("sqlite requires a path", func(t *testing.T) {
		assert.Error(t, ClearHistory(schema.SQLiteBackend, "", ""))
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, ClearHistory("oracle", "", ""))
	})
}

func TestPrintHistoryStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintHistoryStatus(&buf, schema.HistoryStatus{Backend: "none"})
	assert.Equal(t, "History Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:          "sqlite",
		Connected:        true,
		TotalRuns:        2,
		TotalPredictions: 7,
		LastRunID:        2,
		LastRunTime:      ts,
		OldestRunTime:    ts,
		TableSizes:       map[string]int64{predictionsTable: 7, runsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Total Runs: 2\n")
	assert.Contains(t, out, "Last Run: 2025-01-02 03:04:05\n")
	assert.Contains(t, out, "Total Predictions: 7\n")
	assert.Contains(t, out, "  pancstage_prediction_runs: 2 rows\n  pancstage_predictions: 7 rows\n")
}
