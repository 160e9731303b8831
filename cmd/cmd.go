// Package cmd defines the command-line interface for pancstage.
package cmd

import (
	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default .pancstage.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("model-backend", string(schema.NativeModel), "Classifier runtime: native or onnx")
	rootCmd.PersistentFlags().String("model-path", "", "Path to the classifier artifact (empty = embedded reference model)")
	rootCmd.PersistentFlags().String("encoder-path", "", "Path to the label decoder JSON (empty = embedded reference decoder)")
	rootCmd.PersistentFlags().String("onnx-library", "", "Path to the onnxruntime shared library")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "History backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname?parseTime=true)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("emoji", "no", "Enable emojis in output headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("pprof", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Bool("explain", false, "Show the risk breakdown behind each estimate")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Lab values are per invocation and stay out of Viper.
	for _, lf := range labFlags {
		predictCmd.Flags().String(lf.flag, "", lf.usage)
		reportCmd.Flags().String(lf.flag, "", lf.usage)
	}

	batchCmd.Flags().Bool("rank", false, "Sort rows by descending risk score")
	batchCmd.Flags().IntP("limit", "l", 0, "Number of ranked rows to display (0 = all)")
	if err := viper.BindPFlags(batchCmd.Flags()); err != nil {
		contract.LogFatal("Error binding batch flags", err)
	}

	reportCmd.Flags().String("segmentation", "", "Path to the segmentation summary record")
	reportCmd.Flags().String("report", "", "Path to the radiology report text")
	reportCmd.Flags().String("summarizer-model", "", "Anthropic model used to write the report")
	if err := viper.BindPFlag("summarizer-model", reportCmd.Flags().Lookup("summarizer-model")); err != nil {
		contract.LogFatal("Error binding summarizer flag", err)
	}

	serveCmd.Flags().String("listen", contract.DefaultListenAddr, "Address for the HTTP API")
	if err := viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen")); err != nil {
		contract.LogFatal("Error binding listen flag", err)
	}

	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 = latest, 0 = roll back all)")
	if err := viper.BindPFlag("target-version", historyMigrateCmd.Flags().Lookup("target-version")); err != nil {
		contract.LogFatal("Error binding target-version flag", err)
	}
}
