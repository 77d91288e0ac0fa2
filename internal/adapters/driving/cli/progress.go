package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// progressInterval is how often live progress is redrawn.
const progressInterval = 500 * time.Millisecond

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runWithProgress runs fn while redrawing a progress line on stderr when
// stderr is a terminal.
func runWithProgress(
	cmd *cobra.Command,
	label string,
	snapshot func() domain.Progress,
	fn func() (*domain.RunSummary, error),
) (*domain.RunSummary, error) {
	out := cmd.ErrOrStderr()
	if !isTerminal(out) {
		return fn()
	}

	type result struct {
		run *domain.RunSummary
		err error
	}
	done := make(chan result, 1)
	go func() {
		run, err := fn()
		done <- result{run, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			fmt.Fprint(out, "\r\033[K")
			return r.run, r.err
		case <-ticker.C:
			p := snapshot()
			if p.Total > 0 {
				fmt.Fprintf(out, "\r%s... %d/%d (%d failed)", label, p.Done(), p.Total, p.Failed)
			}
		}
	}
}

// printRun writes a one-line summary of a finished run.
func printRun(cmd *cobra.Command, run *domain.RunSummary) {
	if run == nil {
		return
	}
	cmd.Printf("%s: %d total, %d processed, %d skipped, %d failed",
		run.Kind, run.Total, run.Processed, run.Skipped, run.Failed)
	if run.Dropped > 0 {
		cmd.Printf(" (%d dropped with their batch)", run.Dropped)
	}
	cmd.Printf(" in %s\n", run.Duration().Round(time.Millisecond))
}
