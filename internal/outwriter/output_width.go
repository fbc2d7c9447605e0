package outwriter

import (
	"os"

	"github.com/huangsam/tqi/internal/contract"
	"golang.org/x/term"
)

// Fixed column budgets, borders and padding included.
const (
	rankScoreLabelWidth = 25 // Rank + Score + Label
	kindRawWidth        = 30 // Kind + Raw value
	warningsWidth       = 12 // Failures + Warnings counts
)

// getMaxTableNameWidth calculates the maximum width for the name column (project path or node id)
// based on terminal width and the fixed columns the table carries.
func getMaxTableNameWidth(cfg *contract.Config, fixedWidth int) int {
	termWidth := cfg.Width // absolute override from flag/env

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	available := termWidth - fixedWidth - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
