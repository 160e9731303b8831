// Package parquet exports prediction history and batch results to Parquet
// files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/pancstage/pancstage/schema"
	"github.com/parquet-go/parquet-go"
)

// PredictionRun represents a single estimation run with metadata.
// This struct maps to the pancstage_prediction_runs database table.
type PredictionRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalPredictions int32 `parquet:"total_predictions,snappy"`

	// ConfigParams contains the JSON-encoded run settings (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Prediction is one stored prediction with the lab panel it was made from.
// This struct maps to the pancstage_predictions database table.
type Prediction struct {
	RunID          int64     `parquet:"run_id,snappy"`
	RowNumber      int32     `parquet:"row_index,snappy"`
	PredictionTime time.Time `parquet:"prediction_time,snappy"`

	CA199          float64 `parquet:"ca19_9,snappy"`
	TotalBilirubin float64 `parquet:"total_bilirubin,snappy"`
	ALP            float64 `parquet:"alp,snappy"`
	Albumin        float64 `parquet:"albumin,snappy"`
	NLR            float64 `parquet:"nlr,snappy"`
	Age            int32   `parquet:"age,snappy"`

	Stage string `parquet:"stage,dict,snappy"`

	// RiskScore is only present for disease stages
	RiskScore *float64 `parquet:"risk_score,optional,snappy"`

	// SurvivalMonths is the adjusted survival; absent for Normal
	SurvivalMonths *float64 `parquet:"survival_months,optional,snappy"`

	SurvivalText    string `parquet:"survival_text,snappy"`
	Recommendations string `parquet:"recommendations,snappy"`
}

// BatchRow is one row of batch output. Failed rows keep their error and
// leave the prediction columns empty.
type BatchRow struct {
	Row int32 `parquet:"row,snappy"`

	CA199          *float64 `parquet:"ca19_9,optional,snappy"`
	TotalBilirubin *float64 `parquet:"total_bilirubin,optional,snappy"`
	ALP            *float64 `parquet:"alp,optional,snappy"`
	Albumin        *float64 `parquet:"albumin,optional,snappy"`
	NLR            *float64 `parquet:"nlr,optional,snappy"`
	Age            *int32   `parquet:"age,optional,snappy"`

	Stage           *string  `parquet:"stage,optional,dict,snappy"`
	RiskScore       *float64 `parquet:"risk_score,optional,snappy"`
	RiskLabel       *string  `parquet:"risk_label,optional,dict,snappy"`
	SurvivalMonths  *float64 `parquet:"survival_months,optional,snappy"`
	SurvivalText    *string  `parquet:"survival_text,optional,snappy"`
	Recommendations *string  `parquet:"recommendations,optional,snappy"`
	Error           *string  `parquet:"error,optional,snappy"`
}

// writeParquet writes rows of T to outputPath, inferring the schema from T's struct tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WritePredictionRunsParquet writes a slice of PredictionRun structs to a Parquet file.
func WritePredictionRunsParquet(data []PredictionRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WritePredictionsParquet writes a slice of Prediction structs to a Parquet file.
func WritePredictionsParquet(data []Prediction, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteBatchParquet writes batch output rows to a Parquet file.
func WriteBatchParquet(data []BatchRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertPredictionRunRecords converts schema.PredictionRunRecord to PredictionRun for Parquet export.
func ConvertPredictionRunRecords(records []schema.PredictionRunRecord) []PredictionRun {
	result := make([]PredictionRun, len(records))
	for i, record := range records {
		result[i] = PredictionRun{
			RunID:            record.RunID,
			StartTime:        record.StartTime,
			EndTime:          record.EndTime,
			RunDurationMs:    record.RunDurationMs,
			TotalPredictions: record.TotalPredictions,
			ConfigParams:     record.ConfigParams,
		}
	}
	return result
}

// ConvertPredictionRecords converts schema.PredictionRecord to Prediction for Parquet export.
func ConvertPredictionRecords(records []schema.PredictionRecord) []Prediction {
	result := make([]Prediction, len(records))
	for i, r := range records {
		result[i] = Prediction{
			RunID:           r.RunID,
			RowNumber:       r.RowNumber,
			PredictionTime:  r.PredictionTime,
			CA199:           r.CA199,
			TotalBilirubin:  r.TotalBilirubin,
			ALP:             r.ALP,
			Albumin:         r.Albumin,
			NLR:             r.NLR,
			Age:             r.Age,
			Stage:           r.Stage,
			RiskScore:       r.RiskScore,
			SurvivalMonths:  r.SurvivalMonths,
			SurvivalText:    r.SurvivalText,
			Recommendations: r.Recommendations,
		}
	}
	return result
}

// ConvertBatchResults converts batch results to BatchRow in input order.
func ConvertBatchResults(results []schema.BatchResult) []BatchRow {
	rows := make([]BatchRow, len(results))
	for i, res := range results {
		row := BatchRow{Row: int32(res.Row)}
		if res.Prediction == nil {
			msg := res.Error
			row.Error = &msg
			rows[i] = row
			continue
		}

		p := res.Prediction
		age := int32(p.Panel.Age)
		stage := string(p.Stage)
		label := schema.RiskLabel(*p)
		text := p.Survival.Text
		recs := schema.FormatRecommendations(p.Recommendations)

		row.CA199 = ptr(p.Panel.CA199)
		row.TotalBilirubin = ptr(p.Panel.TotalBilirubin)
		row.ALP = ptr(p.Panel.ALP)
		row.Albumin = ptr(p.Panel.Albumin)
		row.NLR = ptr(p.Panel.NLR)
		row.Age = &age
		row.Stage = &stage
		row.RiskLabel = &label
		row.SurvivalMonths = p.Survival.Months
		row.SurvivalText = &text
		row.Recommendations = &recs
		if p.Risk != nil {
			row.RiskScore = ptr(p.Risk.Score)
		}
		rows[i] = row
	}
	return rows
}

func ptr(v float64) *float64 {
	return &v
}
