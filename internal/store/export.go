package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/parquet"
)

// Suffixes appended to the export prefix.
const (
	runsExportSuffix        = ".prediction_runs.parquet"
	predictionsExportSuffix = ".predictions.parquet"
)

// ExecuteHistoryExport writes every run and prediction in hs to two Parquet
// files named after outputFile.
func ExecuteHistoryExport(w io.Writer, hs contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if hs == nil {
		return errors.New("prediction history is not enabled")
	}

	status, err := hs.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no prediction history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total predictions: %d\n", status.TotalPredictions)

	runs, err := hs.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve prediction runs: %w", err)
	}
	predictions, err := hs.GetAllPredictions()
	if err != nil {
		return fmt.Errorf("failed to retrieve predictions: %w", err)
	}

	runsFile := outputFile + runsExportSuffix
	if err := parquet.WritePredictionRunsParquet(parquet.ConvertPredictionRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write prediction runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	predictionsFile := outputFile + predictionsExportSuffix
	if err := parquet.WritePredictionsParquet(parquet.ConvertPredictionRecords(predictions), predictionsFile); err != nil {
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d predictions to: %s\n", len(predictions), predictionsFile)

	return nil
}
