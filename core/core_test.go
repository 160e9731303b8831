package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/store"
	"github.com/pancstage/pancstage/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var exampleFields = map[string]string{
	"CA19_9":          "500",
	"Total_Bilirubin": "1.2",
	"ALP":             "120",
	"Albumin":         "3.5",
	"NLR":             "4",
	"Age":             "55",
}

func testConfig(output schema.OutputMode, outputFile string) *contract.Config {
	return &contract.Config{
		ModelBackend: schema.NativeModel,
		Workers:      2,
		Precision:    1,
		Output:       output,
		OutputFile:   outputFile,
		StoreBackend: schema.NoneBackend,
		Profile:      schema.DefaultClinicalProfile(),
	}
}

func noHistory() *store.MockStoreManager {
	mgr := &store.MockStoreManager{}
	mgr.On("GetHistoryStore").Return(nil)
	return mgr
}

func withHistory(hs *store.MockHistoryStore) *store.MockStoreManager {
	mgr := &store.MockStoreManager{}
	mgr.On("GetHistoryStore").Return(hs)
	return mgr
}

func hasCommand(command string) any {
	return mock.MatchedBy(func(params map[string]any) bool {
		id, _ := params["run_uuid"].(string)
		return params["command"] == command && len(id) == 36
	})
}

func TestRunPredictRecordsRun(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 2")
	hs := &store.MockHistoryStore{}
	hs.On("BeginRun", mock.Anything, hasCommand("predict")).Return(int64(7), nil)
	hs.On("RecordPrediction", int64(7), 1, mock.Anything, mock.AnythingOfType("schema.Prediction")).Return(nil)
	hs.On("EndRun", int64(7), mock.Anything, 1).Return(nil)

	pred, err := RunPredict(context.Background(), testConfig(schema.TextOut, ""), withHistory(hs), est, exampleFields, "predict")
	require.NoError(t, err)
	assert.Equal(t, schema.Stage2, pred.Stage)
	hs.AssertExpectations(t)
}

func TestRunPredictTrackingFailureIsNonFatal(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 3")
	hs := &store.MockHistoryStore{}
	hs.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), errors.New("database is locked"))

	pred, err := RunPredict(context.Background(), testConfig(schema.TextOut, ""), withHistory(hs), est, exampleFields, "predict")
	require.NoError(t, err)
	assert.Equal(t, schema.Stage3, pred.Stage)
	hs.AssertNotCalled(t, "RecordPrediction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	hs.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPredictInvalidInput(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 1")
	hs := &store.MockHistoryStore{}

	fields := map[string]string{"CA19_9": "500"}
	_, err := RunPredict(context.Background(), testConfig(schema.TextOut, ""), withHistory(hs), est, fields, "predict")
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
	hs.AssertNotCalled(t, "BeginRun", mock.Anything, mock.Anything)
}

func TestRunBatch(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 2")
	rows, err := ReadBatch(strings.NewReader(batchCSV))
	require.NoError(t, err)

	hs := &store.MockHistoryStore{}
	hs.On("BeginRun", mock.Anything, hasCommand("batch")).Return(int64(3), nil)
	hs.On("RecordPrediction", int64(3), mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hs.On("EndRun", int64(3), mock.Anything, 2).Return(nil)

	output := runBatch(context.Background(), testConfig(schema.TextOut, ""), withHistory(hs), est, rows)
	assert.Equal(t, 3, output.Total)
	assert.Equal(t, 1, output.Failed)
	assert.False(t, output.Ranked)
	assert.Len(t, output.Results, 3)

	hs.AssertNumberOfCalls(t, "RecordPrediction", 2)
	hs.AssertExpectations(t)
}

func TestRunBatchRanked(t *testing.T) {
	est, _ := newMockEstimator(t, "Stage 2")
	rows, err := ReadBatch(strings.NewReader(batchCSV))
	require.NoError(t, err)

	cfg := testConfig(schema.TextOut, "")
	cfg.Rank = true

	output := runBatch(context.Background(), cfg, noHistory(), est, rows)
	assert.True(t, output.Ranked)
	require.Len(t, output.Results, 2, "failed rows are dropped when ranking")
	assert.Equal(t, 1, output.Results[0].Row)
	assert.Equal(t, 2, output.Results[1].Row)
	assert.Equal(t, 1, output.Failed)

	cfg.Limit = 1
	output = runBatch(context.Background(), cfg, noHistory(), est, rows)
	require.Len(t, output.Results, 1)
	assert.Equal(t, 1, output.Results[0].Row)
}

func TestBeginRunWithoutManager(t *testing.T) {
	tracker := beginRun(testConfig(schema.TextOut, ""), nil, "predict")
	assert.Nil(t, tracker.history)
	tracker.record(1, &schema.Prediction{})
	tracker.end(1)
}

func TestExecuteProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	cfg := testConfig(schema.JSONOut, path)
	cfg.Profile.Weights[schema.BreakdownCA199] = 0.5

	require.NoError(t, ExecuteProfile(context.Background(), cfg, noHistory()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var got schema.ClinicalProfile
	require.NoError(t, json.Unmarshal(content, &got))
	assert.InDelta(t, 0.5, got.Weights[schema.BreakdownCA199], 1e-12)
	assert.Nil(t, got.BaseSurvivalMonths[schema.StageNormal])
}

func TestExecutePredictEmbeddedModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prediction.json")
	require.NoError(t, ExecutePredict(context.Background(), testConfig(schema.JSONOut, path), noHistory(), exampleFields))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var got schema.EnrichedPrediction
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Contains(t, schema.AllStages, got.Stage)
	assert.NotEmpty(t, got.Survival.Text)
	assert.Len(t, got.Recommendations, 4)
}

func TestExecutePredictModelUnavailable(t *testing.T) {
	cfg := testConfig(schema.JSONOut, "")
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.json")

	err := ExecutePredict(context.Background(), cfg, noHistory(), exampleFields)
	assert.ErrorIs(t, err, schema.ErrModelUnavailable)
}

func TestExecuteBatchEmbeddedModel(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "panels.csv")
	require.NoError(t, os.WriteFile(input, []byte(batchCSV), 0o600))
	output := filepath.Join(dir, "out.csv")

	require.NoError(t, ExecuteBatch(context.Background(), testConfig(schema.CSVOut, output), noHistory(), input))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "row,ca19_9,"))
	assert.Contains(t, lines[3], "is not a number")
}

func TestExecuteBatchMissingFile(t *testing.T) {
	err := ExecuteBatch(context.Background(), testConfig(schema.CSVOut, ""), noHistory(), filepath.Join(t.TempDir(), "none.csv"))
	assert.ErrorContains(t, err, "failed to open batch file")
}

type fakeCaller struct {
	prompt string
	answer string
}

func (f *fakeCaller) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, nil
}

func TestExecuteReport(t *testing.T) {
	dir := t.TempDir()
	segmentation := filepath.Join(dir, "dice_vol.txt")
	require.NoError(t, os.WriteFile(segmentation, []byte("NA|15234.5|(512, 512, 96)|8120|(0.7, 0.7, 2.5)|48|32.20|28.70|25.00|32.20"), 0o600))
	report := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(report, []byte("Hypodense mass in the pancreatic head."), 0o600))

	caller := &fakeCaller{answer: "## Summary\n\n- Follow up with oncology"}
	req := ReportRequest{Fields: exampleFields, SegmentationPath: segmentation, ReportPath: report}

	t.Run("markdown", func(t *testing.T) {
		out := filepath.Join(dir, "report.md")
		require.NoError(t, ExecuteReport(context.Background(), testConfig(schema.TextOut, out), noHistory(), caller, req))

		content, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "## Summary\n\n- Follow up with oncology\n", string(content))
		assert.Contains(t, caller.prompt, "Tumor volume: 15.23 mL")
		assert.Contains(t, caller.prompt, "Hypodense mass in the pancreatic head.")
	})

	t.Run("html", func(t *testing.T) {
		out := filepath.Join(dir, "report.html")
		require.NoError(t, ExecuteReport(context.Background(), testConfig(schema.TextOut, out), noHistory(), caller, req))

		content, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(content), "<h2>Summary</h2>")
		assert.Contains(t, string(content), "<!doctype html>")
	})

	t.Run("bad segmentation", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.txt")
		require.NoError(t, os.WriteFile(bad, []byte("NA|1"), 0o600))
		err := ExecuteReport(context.Background(), testConfig(schema.TextOut, ""), noHistory(), caller,
			ReportRequest{Fields: exampleFields, SegmentationPath: bad})
		assert.Error(t, err)
	})
}
