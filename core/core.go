// Package core has core logic for stage estimation, batch processing and orchestration.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pancstage/pancstage/core/algo"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/imaging"
	"github.com/pancstage/pancstage/internal/model"
	"github.com/pancstage/pancstage/internal/outwriter"
	"github.com/pancstage/pancstage/internal/summarizer"
	"github.com/pancstage/pancstage/schema"
)

// ExecutorFunc defines the function signature for executing a command.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// LoadEstimator loads the configured classifier and decoder and wires them to
// the configured clinical profile. The returned closer releases the model.
func LoadEstimator(cfg *contract.Config) (*Estimator, io.Closer, error) {
	m, err := model.Load(model.Options{
		Backend:     cfg.ModelBackend,
		ModelPath:   cfg.ModelPath,
		EncoderPath: cfg.EncoderPath,
		ONNXLibrary: cfg.ONNXLibrary,
	})
	if err != nil {
		return nil, nil, err
	}
	est, err := NewEstimator(m.Classifier, m.Decoder, cfg.Profile)
	if err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	return est, m, nil
}

// ExecutePredict estimates a single lab panel and prints the prediction.
func ExecutePredict(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, fields map[string]string) error {
	est, closer, err := LoadEstimator(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	pred, err := RunPredict(ctx, cfg, mgr, est, fields, "predict")
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WritePrediction(*pred, cfg)
}

// ExecuteBatch estimates every panel in a CSV file and prints the results.
func ExecuteBatch(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, inputPath string) error {
	start := time.Now()

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	rows, err := ReadBatch(file)
	_ = file.Close()
	if err != nil {
		return err
	}

	est, closer, err := LoadEstimator(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	output := runBatch(ctx, cfg, mgr, est, rows)
	if err := ctx.Err(); err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteBatch(output, cfg, time.Since(start))
}

// ExecuteProfile prints the clinical profile in effect.
func ExecuteProfile(_ context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	profile := cfg.Profile
	if profile == nil {
		profile = schema.DefaultClinicalProfile()
	}
	return outwriter.NewOutWriter().WriteProfile(profile, cfg)
}

// ReportRequest holds the inputs of the narrative report.
type ReportRequest struct {
	Fields           map[string]string // Lab panel fields
	SegmentationPath string            // Optional segmentation record file
	ReportPath       string            // Optional radiology report text file
}

// ExecuteReport estimates the lab panel, combines it with the segmentation
// measurements and radiology report, and writes the generated narrative.
// Output files ending in .html get a rendered HTML page; everything else is Markdown.
func ExecuteReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, caller summarizer.LLMCaller, req ReportRequest) error {
	in := summarizer.Input{}

	if req.SegmentationPath != "" {
		m, err := imaging.LoadMeasurement(req.SegmentationPath)
		if err != nil {
			return err
		}
		in.Measurement = &m
	}
	if req.ReportPath != "" {
		text, err := os.ReadFile(req.ReportPath)
		if err != nil {
			return fmt.Errorf("failed to read radiology report: %w", err)
		}
		in.ReportText = string(text)
	}

	est, closer, err := LoadEstimator(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	pred, err := RunPredict(ctx, cfg, mgr, est, req.Fields, "report")
	if err != nil {
		return err
	}
	in.Prediction = *pred

	summary, err := summarizer.Summarize(ctx, caller, in)
	if err != nil {
		return err
	}
	return writeReport(cfg.OutputFile, summary)
}

// writeReport writes the summary as Markdown, or as HTML for .html files.
func writeReport(outputFile string, summary *summarizer.Summary) error {
	content := summary.Markdown + "\n"
	if strings.EqualFold(filepath.Ext(outputFile), ".html") {
		content = summarizer.HTMLDocument("Pancreatic Cancer Report", summary.HTML)
	}

	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}
	if _, err := io.WriteString(file, content); err != nil {
		return err
	}
	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 Wrote report to %s\n", outputFile)
	}
	return nil
}

// RunPredict parses and estimates one panel, recording it as a single-prediction
// run tagged with command. Tracking failures are only logged.
func RunPredict(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, est *Estimator, fields map[string]string, command string) (*schema.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	panel, err := schema.ParseLabPanel(fields)
	if err != nil {
		return nil, err
	}
	pred, err := est.Estimate(panel)
	if err != nil {
		return nil, err
	}

	tracker := beginRun(cfg, mgr, command)
	tracker.record(1, pred)
	tracker.end(1)
	return pred, nil
}

// runBatch estimates all rows as one tracked run and builds the output view.
func runBatch(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, est *Estimator, rows []BatchRow) schema.BatchOutput {
	tracker := beginRun(cfg, mgr, "batch")
	results := estimateBatch(ctx, est, rows, cfg.Workers, tracker.record)

	failed := 0
	for _, res := range results {
		if res.Prediction == nil {
			failed++
		}
	}
	tracker.end(len(results) - failed)

	output := schema.BatchOutput{
		Results: results,
		Total:   len(results),
		Failed:  failed,
	}
	if cfg.Rank {
		output.Results = rankBatchResults(results, cfg.Limit)
		output.Ranked = true
	}
	return output
}

// rankBatchResults orders the successful rows by descending risk, keeping
// input order among equal scores. Failed rows are dropped from the ranked view.
func rankBatchResults(results []schema.BatchResult, limit int) []schema.BatchResult {
	ranked := algo.RankByRisk(schema.EnrichBatchResults(results), limit)
	out := make([]schema.BatchResult, len(ranked))
	for i, ep := range ranked {
		pred := ep.Prediction
		out[i] = schema.BatchResult{Row: ep.Row, Prediction: &pred}
	}
	return out
}

// runTracker records a run in the history store when one is configured.
// Tracking failures are reported as warnings and never fail the run.
type runTracker struct {
	history contract.HistoryStore
	runID   int64
}

// beginRun starts a run for the command, or returns an inert tracker.
func beginRun(cfg *contract.Config, mgr contract.StoreManager, command string) *runTracker {
	tracker := &runTracker{}
	if mgr == nil {
		return tracker
	}
	history := mgr.GetHistoryStore()
	if history == nil {
		return tracker
	}

	params := cfg.RunParams()
	params["command"] = command
	params["run_uuid"] = uuid.NewString()

	runID, err := history.BeginRun(time.Now(), params)
	if err != nil {
		contract.LogWarn("Prediction tracking initialization failed", err)
		return tracker
	}
	if runID > 0 {
		tracker.history = history
		tracker.runID = runID
	}
	return tracker
}

// record stores one prediction. It is safe to call from worker goroutines.
func (t *runTracker) record(row int, pred *schema.Prediction) {
	if t.history == nil {
		return
	}
	if err := t.history.RecordPrediction(t.runID, row, time.Now(), *pred); err != nil {
		contract.LogWarn(fmt.Sprintf("Prediction tracking failed for row %d", row), err)
	}
}

// end finalizes the run with the number of stored predictions.
func (t *runTracker) end(total int) {
	if t.history == nil {
		return
	}
	if err := t.history.EndRun(t.runID, time.Now(), total); err != nil {
		contract.LogWarn("Failed to finalize prediction tracking", err)
	}
}
