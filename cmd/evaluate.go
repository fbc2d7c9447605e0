package cmd

import (
	"github.com/huangsam/tqi/core"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/spf13/cobra"
)

// evaluateCmd scores one project, or a directory of projects, with a calibrated model.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [project-path]",
	Short: "Score a project against a calibrated model.",
	Long: `Run every configured analyzer on a project and score it bottom-up against a calibrated model.

Measures are normalized against their calibrated thresholds into [0, 1], then aggregated
through product factors and quality aspects into a single Total Quality Index (TQI).

A result artifact is written to <results-dir>/<project>.tqi.json for every project.

Examples:
  # Score the current directory
  tqi evaluate --model results/model.calibrated.json

  # Show the weakest measures as well
  tqi evaluate ./service --model model.calibrated.json --explain

  # Score and rank every project under a directory
  tqi evaluate ./projects --model model.calibrated.json --batch --limit 20

  # Export node scores for analytics
  tqi evaluate ./service --model model.calibrated.json --output parquet --output-file scores.parquet`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteEvaluate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run evaluation", err)
		}
	},
}
