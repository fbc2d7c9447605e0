package analyze

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// progress reports finished units. The zero value is a no-op.
type progress struct {
	bar *progressbar.ProgressBar
}

// newProgress renders a bar on stderr only when enabled and stderr is a terminal.
func newProgress(enabled bool, description string, total int) *progress {
	if !enabled || total == 0 || !term.IsTerminal(int(os.Stderr.Fd())) {
		return &progress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &progress{bar: bar}
}

// Increment adds n finished units. Safe for concurrent use.
func (p *progress) Increment(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

// Complete marks the bar as finished.
func (p *progress) Complete() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
