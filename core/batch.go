package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pancstage/pancstage/schema"
)

// BatchRow is one data row of a batch file keyed by its header names.
type BatchRow struct {
	Row    int // 1-based, header excluded
	Fields map[string]string
}

// ReadBatch reads a CSV of lab panels. Header names are matched with
// schema.NormalizeFieldKey, so case, spacing and column order do not matter;
// unknown columns are ignored. A header missing any lab field is rejected.
func ReadBatch(r io.Reader) ([]BatchRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: batch file is empty", schema.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: batch header: %v", schema.ErrInvalidInput, err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}
	if err := checkBatchHeader(header); err != nil {
		return nil, err
	}

	var rows []BatchRow
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: batch row %d: %v", schema.ErrInvalidInput, n, err)
		}
		if isBlankRecord(record) {
			n--
			continue
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}
		rows = append(rows, BatchRow{Row: n, Fields: fields})
	}
	return rows, nil
}

func checkBatchHeader(header []string) error {
	var seen [schema.NumFeatures]bool
	for _, name := range header {
		if i, ok := schema.FeatureIndex(name); ok {
			if seen[i] {
				return fmt.Errorf("%w: batch header names %s more than once", schema.ErrInvalidInput, schema.FeatureNames[i])
			}
			seen[i] = true
		}
	}
	var missing []string
	for i, ok := range seen {
		if !ok {
			missing = append(missing, schema.FeatureNames[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: batch header is missing %s", schema.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// predictionRecorder is called from worker goroutines for every successful row.
type predictionRecorder func(row int, pred *schema.Prediction)

// EstimateBatch estimates every row with a pool of workers. Results keep the
// input order and failed rows carry their error instead of a prediction.
func EstimateBatch(ctx context.Context, est *Estimator, rows []BatchRow, workers int) []schema.BatchResult {
	return estimateBatch(ctx, est, rows, workers, nil)
}

func estimateBatch(ctx context.Context, est *Estimator, rows []BatchRow, workers int, record predictionRecorder) []schema.BatchResult {
	results := make([]schema.BatchResult, len(rows))
	if len(rows) == 0 {
		return results
	}
	workers = max(1, min(workers, len(rows)))

	indexCh := make(chan int, len(rows))
	var wg sync.WaitGroup

	for range workers {
		wg.Go(func() {
			for i := range indexCh {
				// Each worker writes to a unique index of results.
				results[i] = estimateRow(ctx, est, rows[i])
				if record != nil && results[i].Prediction != nil {
					record(rows[i].Row, results[i].Prediction)
				}
			}
		})
	}

	for i := range rows {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	return results
}

func estimateRow(ctx context.Context, est *Estimator, row BatchRow) schema.BatchResult {
	result := schema.BatchResult{Row: row.Row}
	if err := ctx.Err(); err != nil {
		return withError(result, err)
	}
	panel, err := schema.ParseLabPanel(row.Fields)
	if err != nil {
		return withError(result, err)
	}
	pred, err := est.Estimate(panel)
	if err != nil {
		return withError(result, err)
	}
	result.Prediction = pred
	return result
}

func withError(result schema.BatchResult, err error) schema.BatchResult {
	result.Err = err
	result.Error = err.Error()
	return result
}
