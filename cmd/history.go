package cmd

import (
	"fmt"
	"os"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/internal/store"
	"github.com/pancstage/pancstage/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackend reads and validates the store settings without the full config pipeline.
func historyBackend() (schema.DatabaseBackend, string, error) {
	if err := readConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(viper.GetString("store-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads the minimal configuration needed for history operations.
func historySetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}
	if err := store.InitStores(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize prediction history: %w", err)
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetup loads the store settings without opening the store,
// so migrations can run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackend()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	return nil
}

// historyCmd focused on prediction history management.
//
// Note: history subcommands use minimal initialization instead of sharedSetup.
// They never load the model.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the prediction history",
	Long: `Manage the stored prediction runs.

Every predict, batch, report, MCP and HTTP estimate is recorded as a run with
its lab panel, stage, risk score and survival estimate.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display prediction history statistics and connection details",
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		hs := store.Manager.GetHistoryStore()
		if hs == nil {
			contract.LogFatal("Failed to get history status", fmt.Errorf("prediction history is not enabled"))
		}
		status, err := hs.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		store.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports prediction history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export prediction history to Parquet",
	Long: `Export every stored run and prediction to two Parquet files named after
--output-file (<prefix>.prediction_runs.parquet and <prefix>.predictions.parquet).

Examples:
  pancstage history export --output-file history
  duckdb -c "SELECT stage, avg(risk_score) FROM read_parquet('history.predictions.parquet') GROUP BY stage"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := store.ExecuteHistoryExport(os.Stdout, store.Manager.GetHistoryStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export prediction history", err)
		}
	},
}

// historyClearCmd clears the prediction history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored prediction history",
	Long: `Delete all stored runs and predictions. SQLite removes the database file;
MySQL and PostgreSQL drop the history tables.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := store.ClearHistory(cfg.StoreBackend, cfg.StoreDBConnect, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear prediction history", err)
		}
		fmt.Println("Prediction history cleared successfully.")
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the prediction history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  pancstage history migrate

  # Roll back everything
  pancstage history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := store.MigrateHistory(cfg.StoreBackend, cfg.StoreDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
