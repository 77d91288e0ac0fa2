package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clipsearch/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search interactively",
	Long: `Opens an interactive search screen. Tab cycles between text, image URL
and local image file queries.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !isTerminal(cmd.OutOrStdout()) {
		return errors.New("tui needs an interactive terminal")
	}
	if err := ensureEngine(cmd); err != nil {
		return err
	}
	return tui.Run(cmd.Context(), searchService)
}
