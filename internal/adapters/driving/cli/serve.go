package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clipsearch/internal/adapters/driving/mcp"
	"github.com/custodia-labs/clipsearch/internal/adapters/driving/watch"
	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

var (
	servePort    int
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search over the Model Context Protocol",
	Long: `Loads the corpus and serves the search_images tool over MCP.

Without --port the server speaks over stdio, for clients that launch it
as a subprocess. With --port it listens for streamable HTTP.

On the local storage backend the corpus and catalog files are watched and
reloaded in place after a rebuild.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default: stdio)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not reload when the corpus changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := ensureEngine(cmd); err != nil {
		return err
	}

	ports := &mcp.Ports{Search: searchService, Engine: engine}
	server, err := mcp.NewServer(ports)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx := cmd.Context()
	if !serveNoWatch {
		if files := watchedFiles(); len(files) > 0 {
			w := watch.New(engine, 0, files...)
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Warn("Corpus watcher stopped: %v", err)
				}
			}()
		}
	}

	if servePort > 0 {
		addr := fmt.Sprintf("localhost:%d", servePort)
		// stdout stays clean for stdio transports, so only HTTP announces itself.
		cmd.PrintErrf("Serving MCP over HTTP on http://%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}

// watchedFiles lists the local files whose change should reload the
// engine. Remote storage is not watched. The corpus id list is left out:
// consolidation replaces it before the vector file, so only the vector
// file marks a complete corpus.
func watchedFiles() []string {
	cfg, err := loadConfig()
	if err != nil || cfg.Storage.Backend != domain.StorageBackendLocal || cfg.DataDir == "" {
		return nil
	}
	catalog := filepath.FromSlash(cfg.Catalog.Path)
	if !filepath.IsAbs(catalog) {
		catalog = filepath.Join(cfg.DataDir, catalog)
	}
	return []string{
		filepath.Join(cfg.DataDir, filepath.FromSlash(domain.CorpusVectorsPath)),
		catalog,
	}
}
