// Package cmd defines the command-line interface for tqi.
package cmd

import (
	"strconv"
	"strings"

	"github.com/huangsam/tqi/core/algo"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	modelCmd.AddCommand(modelInspectCmd)
	modelCmd.AddCommand(modelValidateCmd)

	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	// Flags shared by every command
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("description", "", "Path to the model description (JSON or YAML)")
	rootCmd.PersistentFlags().String("model", "", "Path to the calibrated model (JSON or YAML)")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent tool runs")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("results-dir", contract.DefaultResultsDir, "Directory for result artifacts and calibrated models")
	rootCmd.PersistentFlags().String("tool-timeout", contract.DefaultToolTimeout.String(), "Timeout for a single tool run on a single project")
	rootCmd.PersistentFlags().String("loc-tool", "yes", "Run the built-in line counter (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("project-marker", "", "Glob naming a file that marks a project root (empty = immediate subdirectories)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Tool cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Evaluation history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for evaluation history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("progress", "yes", "Show a progress bar while tools run (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	calibrateCmd.Flags().String("benchmark-repo", "", "Directory holding the benchmark corpus")
	calibrateCmd.Flags().String("comparisons-dir", "", "Directory of pairwise comparison matrices (<node-id>.csv)")
	calibrateCmd.Flags().String("threshold-policy", string(schema.PercentilePolicy), "Threshold policy: percentile or minmax or quartile")
	calibrateCmd.Flags().StringSlice("percentiles", nil, "Percentile cut points for the percentile policy (default "+joinFloats(algo.DefaultPercentiles)+")")
	calibrateCmd.Flags().StringSlice("default-thresholds", nil, "Thresholds for measures with no samples")
	calibrateCmd.Flags().String("weighter", string(schema.AHPWeighter), "Weight elicitation: ahp or uniform")
	calibrateCmd.Flags().Float64("consistency-tolerance", 0, "Maximum acceptable AHP consistency ratio (0 = default 0.1)")
	if err := viper.BindPFlags(calibrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding calibrate flags", err)
	}

	evaluateCmd.Flags().Bool("explain", false, "Print the weakest measures of the project")
	evaluateCmd.Flags().Bool("batch", false, "Evaluate every project under the path")
	if err := viper.BindPFlags(evaluateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding evaluate flags", err)
	}

	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}

// joinFloats renders values the way a StringSlice flag accepts them.
func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
