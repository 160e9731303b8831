package store

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pancstage/pancstage/schema"
)

// PrintHistoryStatus prints prediction history status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "History Backend: %s\n", status.Backend)
	fmt.Fprintf(&sb, "Connected: %t\n", status.Connected)
	if !status.Connected {
		_, _ = io.WriteString(w, sb.String())
		return
	}
	fmt.Fprintf(&sb, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Fprintf(&sb, "Last Run ID: %d\n", status.LastRunID)
		fmt.Fprintf(&sb, "Last Run: %s\n", status.LastRunTime.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "Oldest Run: %s\n", status.OldestRunTime.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "Total Predictions: %d\n", status.TotalPredictions)
	}
	sb.WriteString("Table Sizes:\n")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		fmt.Fprintf(&sb, "  %s: %d rows\n", table, status.TableSizes[table])
	}
	_, _ = io.WriteString(w, sb.String())
}
