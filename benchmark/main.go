// Package main provides a performance benchmarking tool for the pancstage CLI.
// It generates synthetic lab panel batches of increasing size, runs the batch
// command against each one with and without prediction history, treats the
// first successful run as cold and averages the rest as warm, and writes the
// timings to CSV.
//
// Prerequisites:
// - pancstage binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for generated batches and the benchmark history database
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run for one batch size.
type BenchmarkResult struct {
	Rows          int
	NoHistoryTime string
	ColdTime      string
	WarmTime      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	Workers       int
	NoHistoryRuns int
	HistoryRuns   int
	BatchSizes    []int
	Seed          uint64
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:       os.Args[1],
		Timeout:       5 * time.Minute,
		Workers:       8,
		NoHistoryRuns: 3,
		HistoryRuns:   4,
		BatchSizes:    []int{100, 1_000, 10_000, 100_000},
		Seed:          42,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the pancstage binary and work directory exist.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("pancstage"); err != nil {
		return fmt.Errorf("pancstage binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create work dir %s: %w", config.WorkDir, err)
	}
	return nil
}

// writeSyntheticBatch writes rows random but physiologically plausible panels.
func writeSyntheticBatch(path string, rows int, rng *rand.Rand) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"CA19_9", "Total_Bilirubin", "ALP", "Albumin", "NLR", "Age"}); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for range rows {
		record := []string{
			format(rng.Float64() * 1500),
			format(0.2 + rng.Float64()*8),
			format(40 + rng.Float64()*500),
			format(2 + rng.Float64()*3),
			format(1 + rng.Float64()*12),
			strconv.Itoa(25 + rng.IntN(65)),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// runBenchmarks executes the batch command across every configured size.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult
	rng := rand.New(rand.NewPCG(config.Seed, config.Seed))

	fmt.Printf("Starting benchmark: %d batch sizes, %v timeout, %d workers, no-history: %d runs, history: %d runs\n",
		len(config.BatchSizes), config.Timeout, config.Workers, config.NoHistoryRuns, config.HistoryRuns)

	for _, rows := range config.BatchSizes {
		path := filepath.Join(config.WorkDir, fmt.Sprintf("panels_%d.csv", rows))
		if err := writeSyntheticBatch(path, rows, rng); err != nil {
			fmt.Printf("Skipping %d rows: %v\n", rows, err)
			continue
		}
		results = append(results, runBenchmarkSuite(config, rows, path))
	}

	return results
}

// runBenchmarkSuite runs the no-history and history phases for one batch file.
func runBenchmarkSuite(config BenchmarkConfig, rows int, path string) BenchmarkResult {
	fmt.Printf("Benchmarking %d rows\n", rows)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, backend, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noHistoryAvg := runPhase("none", config.NoHistoryRuns, "No-history")
	coldTime, warmAvg := runPhase("sqlite", config.HistoryRuns, "History")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-history average: %s, Cold time: %s, Warm average: %s\n", noHistoryAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Rows:          rows,
		NoHistoryTime: noHistoryAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark runs the batch command numRuns times and returns the cold time and warm times.
func runBenchmark(config BenchmarkConfig, path, backend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"batch", path,
		"--workers", strconv.Itoa(config.Workers),
		"--store-backend", backend,
		"--output-file", os.DevNull,
	}
	if backend == "sqlite" {
		args = append(args, "--store-db-connect", filepath.Join(config.WorkDir, "benchmark_history.db"))
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "pancstage", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil && !timedOut && isSuccess(output) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks that the batch wrote its table without a fatal error.
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Wrote table") && !strings.Contains(outputStr, "Fatal")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/pancstage_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"rows", "no_history_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{strconv.Itoa(result.Rows), result.NoHistoryTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	fmt.Printf("Batch Estimation:\n")
	for _, result := range results {
		fmt.Printf("  %8d rows: No-history: %s, Cold: %s, Warm: %s\n", result.Rows, result.NoHistoryTime, result.ColdTime, result.WarmTime)
	}
}
