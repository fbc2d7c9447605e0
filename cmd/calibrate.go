package cmd

import (
	"github.com/huangsam/tqi/core"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/spf13/cobra"
)

// calibrateCmd derives thresholds and weights from a benchmark corpus.
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate a model description against a benchmark corpus.",
	Long: `Run every configured analyzer over a corpus of projects and derive a calibrated model.

Calibration does two things:
- Measure thresholds come from the distribution of each measure over the corpus
- Aggregation weights come from pairwise comparison matrices (AHP) or are uniform

Nodes unreachable from the TQI root are trimmed before calibration. The calibrated model
is written to --model, or to <results-dir>/<model-name>.calibrated.json.

Examples:
  # Calibrate with the default percentile policy and AHP weights
  tqi calibrate --description model.yaml --benchmark-repo ./corpus --comparisons-dir ./comparisons

  # Only treat directories holding a solution file as projects
  tqi calibrate --description model.yaml --benchmark-repo ./corpus --project-marker '*.sln'

  # Use min/max thresholds and equal weights
  tqi calibrate --description model.yaml --benchmark-repo ./corpus --threshold-policy minmax --weighter uniform`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCalibrate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run calibration", err)
		}
	},
}
