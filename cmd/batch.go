package cmd

import (
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/spf13/cobra"
)

// batchCmd estimates every panel of a CSV file.
var batchCmd = &cobra.Command{
	Use:   "batch <csv>",
	Short: "Estimate every lab panel in a CSV file",
	Long: `Estimate a CSV of lab panels concurrently and print one row per panel.

The header must name CA19_9, Total_Bilirubin, ALP, Albumin, NLR and Age in any
order and casing ("ca19-9" and "CA 19 9" also match). Other columns are ignored.
Rows that fail validation are reported with their error without stopping the
rest of the batch. The whole batch is recorded as one history run.

Examples:
  # Input order
  pancstage batch panels.csv

  # Ten highest-risk rows
  pancstage batch panels.csv --rank --limit 10

  # Columnar output for notebooks
  pancstage batch panels.csv --output parquet --output-file results.parquet`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteBatch(rootCtx, cfg, storeManager, args[0]); err != nil {
			contract.LogFatal("Cannot run batch estimation", err)
		}
	},
}
