package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteHistoryExport(t *testing.T) {
	hs, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()

	now := time.Now()
	runID, err := hs.BeginRun(now, map[string]any{"workers": 1})
	require.NoError(t, err)
	require.NoError(t, hs.RecordPrediction(runID, 1, now, stage2Prediction()))
	require.NoError(t, hs.EndRun(runID, now.Add(time.Second), 1))

	prefix := filepath.Join(t.TempDir(), "history")
	var buf bytes.Buffer
	require.NoError(t, ExecuteHistoryExport(&buf, hs, prefix))

	for _, suffix := range []string{runsExportSuffix, predictionsExportSuffix} {
		info, err := os.Stat(prefix + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, buf.String(), "Exported 1 runs")
	assert.Contains(t, buf.String(), "Exported 1 predictions")
}

func TestExecuteHistoryExportErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, ExecuteHistoryExport(&buf, nil, "out"))

	hs, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()

	assert.Error(t, ExecuteHistoryExport(&buf, hs, ""))

	err = ExecuteHistoryExport(&buf, hs, filepath.Join(t.TempDir(), "empty"))
	assert.ErrorContains(t, err, "no prediction history")
}

func TestExecuteHistoryExportStatusError(t *testing.T) {
	mockStore := &MockHistoryStore{}
	mockStore.On("GetStatus").Return(schema.HistoryStatus{}, assert.AnError)

	var buf bytes.Buffer
	err := ExecuteHistoryExport(&buf, mockStore, "out")
	assert.ErrorIs(t, err, assert.AnError)
	mockStore.AssertExpectations(t)
}
