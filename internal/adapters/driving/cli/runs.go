package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

var (
	runsKind  string
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsKind, "kind", "", "only show runs of this kind: catalog, download, extract or consolidate")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runHistory == nil {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := initPipeline(cfg); err != nil {
			return err
		}
	}
	if runHistory == nil {
		return errors.New("run history not configured")
	}

	runs, err := runHistory.List(cmd.Context(), domain.RunKind(runsKind), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	cmd.Printf("%-12s  %-20s  %6s  %9s  %7s  %6s  %s\n",
		"KIND", "STARTED", "TOTAL", "PROCESSED", "SKIPPED", "FAILED", "STATUS")
	for _, run := range runs {
		status := "ok"
		if !run.Succeeded() {
			status = run.Error
		}
		cmd.Printf("%-12s  %-20s  %6d  %9d  %7d  %6d  %s\n",
			run.Kind, run.StartedAt.Local().Format(time.DateTime),
			run.Total, run.Processed, run.Skipped, run.Failed, status)
	}
	return nil
}
