package cli

import (
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show configuration, corpus and recent run status",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	styles := newOutputStyles(cmd.OutOrStdout())

	cmd.Println(styles.Title.Render("Configuration"))
	cmd.Printf("  Data directory:  %s\n", cfg.DataDir)
	cmd.Printf("  Storage:         %s\n", cfg.Storage.Backend)
	if mode, err := cfg.Catalog.ResolveMode(); err != nil {
		cmd.Printf("  Catalog source:  %s\n", styles.Warning.Render(err.Error()))
	} else {
		cmd.Printf("  Catalog source:  %s\n", mode.Description())
	}
	cmd.Printf("  Embedding:       %s (%s)\n", cfg.Embedding.BaseURL, cfg.Embedding.Model)
	cmd.Printf("  Batch size:      %d, failure policy %s\n", cfg.Extract.BatchSize, cfg.Extract.FailurePolicy)
	cmd.Println()

	if err := initPipeline(cfg); err != nil {
		return err
	}

	cmd.Println(styles.Title.Render("Corpus"))
	if !engine.Stats().Loaded {
		if err := engine.Reload(cmd.Context()); err != nil {
			cmd.Printf("  %s\n", styles.Warning.Render("not loaded: "+err.Error()))
		}
	}
	if stats := engine.Stats(); stats.Loaded {
		cmd.Printf("  Images:          %d\n", stats.Images)
		cmd.Printf("  Dimensions:      %d\n", stats.Dimensions)
		cmd.Printf("  Catalog entries: %d\n", stats.Catalog)
	}
	cmd.Println()

	cmd.Println(styles.Title.Render("Recent runs"))
	runs, err := runHistory.List(cmd.Context(), "", 5)
	if err != nil {
		cmd.Printf("  %s\n", styles.Warning.Render(err.Error()))
		return nil
	}
	if len(runs) == 0 {
		cmd.Println("  none")
	}
	for _, run := range runs {
		cmd.Printf("  %-12s %s  %d processed, %d failed\n",
			run.Kind, styles.Muted.Render(run.StartedAt.Local().Format("2006-01-02 15:04")), run.Processed, run.Failed)
	}
	return nil
}
