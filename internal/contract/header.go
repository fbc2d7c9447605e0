package contract

import (
	"fmt"
	"os"
)

// LogCalibrationHeader prints a concise, 2-line header before a calibration run.
func LogCalibrationHeader(cfg *Config, projects int) {
	_, _ = fmt.Fprintf(os.Stderr, "🔎 Corpus: %s (%d projects, marker: %s)\n", ProjectName(cfg.BenchmarkRepo), projects, markerLabel(cfg.ProjectMarker))
	_, _ = fmt.Fprintf(os.Stderr, "📐 Policy: %s thresholds, %s weights\n", cfg.ThresholdPolicy, cfg.Weighter)
}

// LogEvaluationHeader prints a concise, 2-line header before an evaluation run.
func LogEvaluationHeader(cfg *Config, modelName string, projects int) {
	if cfg.Batch {
		_, _ = fmt.Fprintf(os.Stderr, "🔎 Batch: %s (%d projects)\n", ProjectName(cfg.ProjectPath), projects)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "🔎 Project: %s\n", ProjectName(cfg.ProjectPath))
	}
	_, _ = fmt.Fprintf(os.Stderr, "📐 Model: %s (%d workers, tool timeout %s)\n", modelName, cfg.Workers, cfg.ToolTimeout)
}

// LogInfo prints a progress message to stderr.
func LogInfo(msg string) {
	_, _ = fmt.Fprintf(os.Stderr, "%s\n", msg)
}

func markerLabel(marker string) string {
	if marker == "" {
		return "subdirectories"
	}
	return marker
}
