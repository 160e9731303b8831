package cmd

import (
	"github.com/pancstage/pancstage/core"
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/summarizer"
	"github.com/spf13/cobra"
)

// reportCmd writes a narrative report combining labs, imaging and radiology text.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a narrative patient report from labs, segmentation and radiology text",
	Long: `Estimate the lab panel, then ask an Anthropic model to combine it with the
tumor measurements from the segmentation summary and the radiology report.

Requires ANTHROPIC_API_KEY. The report is Markdown unless --output-file ends in
.html, in which case a rendered HTML page is written.

Examples:
  pancstage report --ca19-9 500 --total-bilirubin 1.2 --alp 120 --albumin 3.5 --nlr 4 --age 55 \
    --segmentation summary.txt --report radiology.txt --output-file report.html`,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		fields, err := labFields(cmd)
		if err != nil {
			contract.LogFatal("Invalid lab flags", err)
		}
		segmentation, _ := cmd.Flags().GetString("segmentation")
		reportPath, _ := cmd.Flags().GetString("report")

		caller, err := summarizer.NewAnthropicCallerFromEnv(cfg.SummarizerModel)
		if err != nil {
			contract.LogFatal("Cannot create summarizer", err)
		}

		req := core.ReportRequest{
			Fields:           fields,
			SegmentationPath: segmentation,
			ReportPath:       reportPath,
		}
		if err := core.ExecuteReport(rootCtx, cfg, storeManager, caller, req); err != nil {
			contract.LogFatal("Cannot write report", err)
		}
	},
}
