// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/pancstage/pancstage/internal/contract"
	"github.com/pancstage/pancstage/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WritePrediction prints a single prediction using the configured output format.
func (ow *OutWriter) WritePrediction(pred schema.Prediction, cfg *contract.Config) error {
	return PrintPrediction(pred, cfg)
}

// WriteBatch prints batch results using the configured output format.
func (ow *OutWriter) WriteBatch(output schema.BatchOutput, cfg *contract.Config, duration time.Duration) error {
	return PrintBatchResults(output, cfg, duration)
}

// WriteProfile prints the active clinical profile using the configured output format.
func (ow *OutWriter) WriteProfile(profile *schema.ClinicalProfile, cfg *contract.Config) error {
	return PrintProfile(profile, cfg)
}

// GetMaxTableTextWidth calculates the maximum width for free-text cells
// (survival text, errors) in table output based on terminal width.
func GetMaxTableTextWidth(cfg *contract.Config) int {
	termWidth := cfg.Width

	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // CI and pipes
		} else {
			termWidth = detectedWidth
		}
	}

	// Row + Stage + Risk + Label with borders/padding
	baseWidth := 40
	if cfg.Explain {
		baseWidth += 30
	}
	baseWidth += 15

	available := termWidth - baseWidth
	if available < 20 {
		return 20
	}
	if available > 80 {
		return 80
	}
	return available
}
