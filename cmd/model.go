package cmd

import (
	"github.com/huangsam/tqi/core"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/spf13/cobra"
)

// modelCmd groups model document tooling.
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and validate model descriptions and calibrated models",
	Long: `Work with model documents without running any analyzers.

Subcommands:
  inspect  - Print the nodes, thresholds and weights of a document
  validate - Check that a document is well formed (and fully calibrated for --model)

Both read --model when set, and --description otherwise.`,
}

// modelInspectCmd prints a model document.
var modelInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the structure of a model document",
	Long: `Print every node of a model document with its inputs and calibration.

Examples:
  tqi model inspect --description model.yaml
  tqi model inspect --model results/model.calibrated.json --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteModelInspect(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot inspect model", err)
		}
	},
}

// modelValidateCmd validates a model document.
var modelValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a model document",
	Long: `Check a model document for structural problems.

A description must have exactly one TQI root, known children of the right kinds and no cycles.
A calibrated model must also carry thresholds for every measure and weights for every edge.

Examples:
  tqi model validate --description model.yaml
  tqi model validate --model results/model.calibrated.json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteModelValidate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Invalid model", err)
		}
	},
}
