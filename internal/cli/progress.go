package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// BatchProgress shows AI batch progress on a terminal.
type BatchProgress struct {
	bar *progressbar.ProgressBar
}

// NewBatchProgress creates a progress bar counting transactions sent to the classifier.
func NewBatchProgress(w io.Writer, transactions int) *BatchProgress {
	bar := progressbar.NewOptions(transactions,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Classifying transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
	return &BatchProgress{bar: bar}
}

// Update moves the bar to transactionsDone. Its signature matches llm.ProgressFunc.
func (p *BatchProgress) Update(_, _ int, transactionsDone int) {
	if err := p.bar.Set(transactionsDone); err != nil {
		slog.Warn("failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *BatchProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("failed to finish progress bar", "error", err)
	}
}
