// Package cli provides the cobra command tree for clipsearch.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var (
	verbose   bool
	dataDir   string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "clipsearch",
	Short: "Image similarity search over IIIF collections",
	Long: `clipsearch builds a CLIP feature corpus from a IIIF image catalog and
answers text, image-URL and uploaded-image queries against it.

A typical first run:
  clipsearch build --csv catalog.csv
  clipsearch search "a harbour at dusk"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initSettings()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides $"+domain.DataDirEnv+")")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.clipsearch)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// ExecuteContext runs the command tree and releases every opened service.
func ExecuteContext(ctx context.Context) error {
	defer closeServices()
	// cobra prints to stderr unless an output writer is set.
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}
