package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/iocache"
	"github.com/huangsam/tqi/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historySetup opens only the history store. An unset backend means none.
func historySetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSettings("history-backend", "history-db-connect", schema.NoneBackend)
	if err != nil {
		return err
	}
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetup resolves the history backend without opening the store, so
// migrations run against a database the store has not touched yet.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSettings("history-backend", "history-db-connect", schema.NoneBackend)
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on evaluation history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded evaluation runs and exports",
	Long: `Manage the evaluation history used for trend tracking and reporting.

When --history-backend is set, every evaluation records:
- Run metadata (model, timestamps, configuration, duration)
- The score of every node for every project, with its label and raw value

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show history statistics
  export  - Export history to Parquet
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Record history while evaluating
  tqi evaluate --model model.calibrated.json --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  tqi history export --history-backend sqlite --output-file tqi-history`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display history statistics and connection details",
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			contract.LogFatal("Failed to get history status", errors.New("history store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports the history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export evaluation history to Parquet",
	Long: `Export all recorded runs and node scores to Parquet.

Writes two files next to --output-file:
  <output-file>.evaluation_runs.parquet
  <output-file>.node_scores.parquet

Examples:
  tqi history export --history-backend sqlite --output-file tqi-history
  duckdb -c "SELECT node_id, avg(score) FROM 'tqi-history.node_scores.parquet' GROUP BY 1"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyClearCmd clears the history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all evaluation history",
	Long: `Delete all recorded evaluation runs and node scores.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := cfg.HistoryDBConnect
		if path == "" {
			path = contract.GetHistoryDBFilePath()
		}
		if err := iocache.ClearHistory(cfg.HistoryBackend, path, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run history schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the evaluation history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  tqi history migrate --history-backend sqlite

  # Roll back every migration
  tqi history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		version, err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Printf("History schema is at version %d\n", version)
	},
}
