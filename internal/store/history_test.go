package store

import (
	"testing"
	"time"

	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage2Prediction() schema.Prediction {
	months := 10.9
	return schema.Prediction{
		Panel:           schema.LabPanel{CA199: 500, TotalBilirubin: 1.2, ALP: 120, Albumin: 3.5, NLR: 4, Age: 55},
		Stage:           schema.Stage2,
		Risk:            &schema.RiskAssessment{Score: 0.258333},
		Survival:        schema.SurvivalEstimate{Months: &months, Text: "Estimated survival: 11 months (personalized based on lab risk profile)."},
		Recommendations: []string{"Start chemotherapy", "Surgical evaluation"},
	}
}

func normalPrediction() schema.Prediction {
	return schema.Prediction{
		Panel:           schema.LabPanel{CA199: 10, TotalBilirubin: 0.5, ALP: 80, Albumin: 4.2, NLR: 1.5, Age: 40},
		Stage:           schema.StageNormal,
		Survival:        schema.SurvivalEstimate{Text: schema.NormalSurvivalText},
		Recommendations: []string{"Routine checkup"},
	}
}

func TestHistoryStore_NoneBackend(t *testing.T) {
	hs, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := hs.BeginRun(time.Now(), map[string]any{"workers": 1})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)

	assert.NoError(t, hs.RecordPrediction(1, 1, time.Now(), stage2Prediction()))
	assert.NoError(t, hs.EndRun(1, time.Now(), 1))

	status, err := hs.GetStatus()
	assert.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, string(schema.NoneBackend), status.Backend)

	runs, err := hs.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)

	assert.NoError(t, hs.Close())
}

func TestHistoryStore_UnsupportedBackend(t *testing.T) {
	_, err := NewHistoryStore("oracle", "")
	assert.Error(t, err)
}

func TestHistoryStore_SQLiteRoundTrip(t *testing.T) {
	hs, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()

	start := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
	runID, err := hs.BeginRun(start, map[string]any{"model_backend": "native", "workers": 2})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	require.NoError(t, hs.RecordPrediction(runID, 1, start.Add(time.Second), stage2Prediction()))
	require.NoError(t, hs.RecordPrediction(runID, 2, start.Add(2*time.Second), normalPrediction()))
	require.NoError(t, hs.EndRun(runID, start.Add(2500*time.Millisecond), 2))

	status, err := hs.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, int64(1), status.TotalRuns)
	assert.Equal(t, int64(2), status.TotalPredictions)
	assert.Equal(t, runID, status.LastRunID)
	assert.True(t, start.Equal(status.LastRunTime))
	assert.True(t, start.Equal(status.OldestRunTime))
	assert.Equal(t, int64(1), status.TableSizes[runsTable])
	assert.Equal(t, int64(2), status.TableSizes[predictionsTable])

	runs, err := hs.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int32(2), runs[0].TotalPredictions)
	require.NotNil(t, runs[0].RunDurationMs)
	assert.Equal(t, int32(2500), *runs[0].RunDurationMs)
	require.NotNil(t, runs[0].EndTime)
	require.NotNil(t, runs[0].ConfigParams)
	assert.JSONEq(t, `{"model_backend":"native","workers":2}`, *runs[0].ConfigParams)

	preds, err := hs.GetAllPredictions()
	require.NoError(t, err)
	require.Len(t, preds, 2)

	assert.Equal(t, int32(1), preds[0].RowNumber)
	assert.Equal(t, "Stage 2", preds[0].Stage)
	require.NotNil(t, preds[0].RiskScore)
	assert.InDelta(t, 0.258333, *preds[0].RiskScore, 1e-9)
	require.NotNil(t, preds[0].SurvivalMonths)
	assert.InDelta(t, 10.9, *preds[0].SurvivalMonths, 1e-9)
	assert.Equal(t, "✔ Start chemotherapy\n✔ Surgical evaluation", preds[0].Recommendations)
	assert.Equal(t, int32(55), preds[0].Age)
	assert.True(t, start.Add(time.Second).Equal(preds[0].PredictionTime))

	assert.Equal(t, "Normal", preds[1].Stage)
	assert.Nil(t, preds[1].RiskScore)
	assert.Nil(t, preds[1].SurvivalMonths)
	assert.Equal(t, schema.NormalSurvivalText, preds[1].SurvivalText)
}

func TestHistoryStore_DuplicateRowRejected(t *testing.T) {
	hs, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()

	runID, err := hs.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, hs.RecordPrediction(runID, 1, time.Now(), normalPrediction()))
	assert.Error(t, hs.RecordPrediction(runID, 1, time.Now(), normalPrediction()))
}

func TestHistoryStore_EndUnknownRun(t *testing.T) {
	hs, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()

	assert.Error(t, hs.EndRun(42, time.Now(), 0))
}

func TestHistoryStore_EmptyStatus(t *testing.T) {
	hs, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = hs.Close() }()

	status, err := hs.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.TotalRuns)
	assert.True(t, status.LastRunTime.IsZero())
	assert.Len(t, status.TableSizes, 2)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(schema.SQLiteBackend, 1, 3))
	assert.Equal(t, "?, ?", placeholders(schema.MySQLBackend, 1, 2))
	assert.Equal(t, "$2, $3", placeholders(schema.PostgreSQLBackend, 2, 2))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName(runsTable))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("runs; DROP TABLE x"))
	assert.Error(t, validateTableName("1runs"))
}
