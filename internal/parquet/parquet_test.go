package parquet

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pancstage/pancstage/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestPredictionRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(PredictionRun))
	for _, col := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_predictions", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestPredictionStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(Prediction))
	expected := []string{
		"run_id", "row_index", "prediction_time",
		"ca19_9", "total_bilirubin", "alp", "albumin", "nlr", "age",
		"stage", "risk_score", "survival_months", "survival_text", "recommendations",
	}
	for _, col := range expected {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestWritePredictionRunsParquet(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	duration := int32(1500)
	params := `{"workers":4}`

	data := ConvertPredictionRunRecords([]schema.PredictionRunRecord{
		{RunID: 1, StartTime: start, EndTime: &end, RunDurationMs: &duration, TotalPredictions: 3, ConfigParams: &params},
		{RunID: 2, StartTime: start.Add(time.Hour)}, // still running
	})

	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WritePredictionRunsParquet(data, path))

	got := readAll[PredictionRun](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].RunID)
	assert.Equal(t, int32(3), got[0].TotalPredictions)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, end, *got[0].EndTime, time.Microsecond)
	require.NotNil(t, got[0].RunDurationMs)
	assert.Equal(t, duration, *got[0].RunDurationMs)
	assert.Equal(t, params, *got[0].ConfigParams)

	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWritePredictionsParquet(t *testing.T) {
	risk := 0.2583
	months := 10.76
	data := ConvertPredictionRecords([]schema.PredictionRecord{
		{
			RunID: 1, RowNumber: 1, PredictionTime: time.Date(2025, 3, 1, 9, 0, 1, 0, time.UTC),
			CA199: 500, TotalBilirubin: 1.2, ALP: 120, Albumin: 3.5, NLR: 4, Age: 55,
			Stage: "Stage 2", RiskScore: &risk, SurvivalMonths: &months,
			SurvivalText: "Estimated survival: 11 months (personalized based on lab risk profile).",
		},
		{
			RunID: 1, RowNumber: 2, PredictionTime: time.Date(2025, 3, 1, 9, 0, 2, 0, time.UTC),
			CA199: 10, TotalBilirubin: 0.5, ALP: 80, Albumin: 4.2, NLR: 1.5, Age: 40,
			Stage: "Normal", SurvivalText: schema.NormalSurvivalText,
		},
	})

	path := filepath.Join(t.TempDir(), "predictions.parquet")
	require.NoError(t, WritePredictionsParquet(data, path))

	got := readAll[Prediction](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "Stage 2", got[0].Stage)
	require.NotNil(t, got[0].RiskScore)
	assert.InDelta(t, risk, *got[0].RiskScore, 1e-12)
	assert.Equal(t, int32(55), got[0].Age)
	assert.Equal(t, "Normal", got[1].Stage)
	assert.Nil(t, got[1].RiskScore)
	assert.Nil(t, got[1].SurvivalMonths)
	assert.Equal(t, schema.NormalSurvivalText, got[1].SurvivalText)
}

func TestConvertBatchResults(t *testing.T) {
	months := 10.76
	pred := &schema.Prediction{
		Panel:           schema.LabPanel{CA199: 500, TotalBilirubin: 1.2, ALP: 120, Albumin: 3.5, NLR: 4, Age: 55},
		Stage:           schema.Stage2,
		Risk:            &schema.RiskAssessment{Score: 0.65},
		Survival:        schema.SurvivalEstimate{Months: &months, Text: "text"},
		Recommendations: []string{"a", "b"},
	}
	rows := ConvertBatchResults([]schema.BatchResult{
		{Row: 1, Prediction: pred},
		{Row: 2, Error: "invalid input: Age is required"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[0].Row)
	assert.Equal(t, "Stage 2", *rows[0].Stage)
	assert.Equal(t, "High", *rows[0].RiskLabel)
	assert.InDelta(t, 0.65, *rows[0].RiskScore, 1e-12)
	assert.Equal(t, "✔ a\n✔ b", *rows[0].Recommendations)
	assert.Nil(t, rows[0].Error)

	assert.Equal(t, int32(2), rows[1].Row)
	assert.Nil(t, rows[1].Stage)
	require.NotNil(t, rows[1].Error)
	assert.Contains(t, *rows[1].Error, "Age is required")

	path := filepath.Join(t.TempDir(), "batch.parquet")
	require.NoError(t, WriteBatchParquet(rows, path))
	got := readAll[BatchRow](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, int32(2), got[1].Row)
}

func TestWriteParquetBadPath(t *testing.T) {
	err := WritePredictionRunsParquet(nil, filepath.Join(t.TempDir(), "missing", "runs.parquet"))
	assert.Error(t, err)
}
