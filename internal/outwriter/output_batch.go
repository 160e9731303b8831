package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/parquet"
	"github.com/pancstage/pancstage/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintBatchResults outputs batch results, dispatching based on the output format configured.
func PrintBatchResults(output schema.BatchOutput, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchJSON(w, output)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchCSV(w, output.Results, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteBatchParquet(parquet.ConvertBatchResults(output.Results), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote %d rows to %s\n", len(output.Results), cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchTable(w, output, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// writeBatchTable generates and writes the human-readable batch table.
func writeBatchTable(w io.Writer, output schema.BatchOutput, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Row", "Stage", "Risk", "Label", "Survival"}
	if cfg.Explain {
		headers = append(headers, "Explain")
	}
	table.Header(headers)
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	textWidth := GetMaxTableTextWidth(cfg)
	var data [][]string
	for _, res := range output.Results {
		if res.Prediction == nil {
			row := []string{
				strconv.Itoa(res.Row),
				"-",
				"-",
				"-",
				"error: " + res.Error,
			}
			if cfg.Explain {
				row = append(row, "-")
			}
			data = append(data, row)
			continue
		}

		pred := *res.Prediction
		row := []string{
			strconv.Itoa(res.Row),
			contract.GetStageLabel(pred.Stage, cfg.UseColors),
			riskScoreCell(pred, fmtFloat),
			contract.GetRiskLabel(pred, cfg.UseColors),
			contract.TruncateText(pred.Survival.Text, textWidth),
		}
		if cfg.Explain {
			row = append(row, formatTopBreakdown(pred.Risk))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	order := "input order"
	if output.Ranked {
		order = "ranked by risk"
	}
	if _, err := fmt.Fprintf(w, "Showing %d of %d rows, %s (failed: %d)\n", len(output.Results), output.Total, order, output.Failed); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Batch completed in %v with %d workers. Store backend: %s\n", duration, cfg.Workers, cfg.StoreBackend); err != nil {
		return err
	}
	return nil
}

// writeBatchCSV writes one CSV record per batch row.
func writeBatchCSV(w io.Writer, results []schema.BatchResult, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, predictionHeader, func(cw *csv.Writer) error {
		for _, res := range results {
			if err := cw.Write(predictionRecord(res.Row, res.Prediction, res.Error, fmtFloat)); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeBatchJSON writes the batch with enriched predictions and per-row errors.
func writeBatchJSON(w io.Writer, output schema.BatchOutput) error {
	type jsonRow struct {
		Row        int                        `json:"row"`
		Prediction *schema.EnrichedPrediction `json:"prediction,omitempty"`
		Error      string                     `json:"error,omitempty"`
	}
	type jsonBatch struct {
		Total  int       `json:"total"`
		Failed int       `json:"failed"`
		Ranked bool      `json:"ranked"`
		Rows   []jsonRow `json:"rows"`
	}

	batch := jsonBatch{
		Total:  output.Total,
		Failed: output.Failed,
		Ranked: output.Ranked,
		Rows:   make([]jsonRow, len(output.Results)),
	}
	for i, res := range output.Results {
		row := jsonRow{Row: res.Row, Error: res.Error}
		if res.Prediction != nil {
			enriched := enrichPrediction(res.Row, *res.Prediction)
			row.Prediction = &enriched
		}
		batch.Rows[i] = row
	}
	return writeJSON(w, batch)
}
