package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

var (
	catalogEndpoint  string
	catalogQuery     string
	catalogQueryFile string
	catalogCSV       string

	extractBatchSize int
	extractPolicy    string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Acquire the image catalog",
	Long: `Fetches the catalog from a SPARQL endpoint or a CSV file, derives a
content-addressed local identifier for every IIIF URL and stores the result.

The source comes from the configuration unless overridden by flags.`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download catalog images",
	Long: `Downloads a JPEG rendition of every catalog image not already stored.
Re-running only fetches what is missing.`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Embed downloaded images",
	Long: `Embeds stored images in fixed-size batches. Committed batches are never
recomputed, so an interrupted run resumes where it stopped.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge feature batches into the search corpus",
	Args:  cobra.NoArgs,
	RunE:  runConsolidate,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run catalog, download, extract and consolidate",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func init() {
	for _, cmd := range []*cobra.Command{catalogCmd, buildCmd} {
		cmd.Flags().StringVar(&catalogEndpoint, "sparql", "", "SPARQL endpoint URL")
		cmd.Flags().StringVar(&catalogQuery, "query", "", "SPARQL SELECT query text")
		cmd.Flags().StringVar(&catalogQueryFile, "query-file", "", "file holding the SPARQL SELECT query")
		cmd.Flags().StringVar(&catalogCSV, "csv", "", "CSV catalog file")
	}
	for _, cmd := range []*cobra.Command{extractCmd, buildCmd} {
		cmd.Flags().IntVarP(&extractBatchSize, "batch-size", "b", 0, "images per embedding batch (default from config)")
		cmd.Flags().StringVar(&extractPolicy, "failure-policy", "", "image or batch (default from config)")
	}

	rootCmd.AddCommand(catalogCmd, downloadCmd, extractCmd, consolidateCmd, buildCmd)
}

// pipelineConfig loads the configuration with command flags applied.
func pipelineConfig() (domain.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}

	flagQuery := catalogQuery
	if catalogQueryFile != "" {
		data, err := os.ReadFile(catalogQueryFile)
		if err != nil {
			return cfg, fmt.Errorf("read query file: %w", err)
		}
		flagQuery = string(data)
	}
	switch {
	case catalogCSV != "":
		cfg.Catalog = domain.CatalogSettings{
			Mode:      domain.CatalogModeCSV,
			CSVFile:   catalogCSV,
			URLColumn: cfg.Catalog.URLColumn,
			Path:      cfg.Catalog.Path,
		}
	case catalogEndpoint != "" || flagQuery != "":
		endpoint, query := cfg.Catalog.Endpoint, cfg.Catalog.Query
		if catalogEndpoint != "" {
			endpoint = catalogEndpoint
		}
		if flagQuery != "" {
			query = flagQuery
		}
		cfg.Catalog = domain.CatalogSettings{
			Mode:      domain.CatalogModeSPARQL,
			Endpoint:  endpoint,
			Query:     query,
			URLColumn: cfg.Catalog.URLColumn,
			Path:      cfg.Catalog.Path,
		}
	}

	if extractBatchSize != 0 {
		cfg.Extract.BatchSize = extractBatchSize
	}
	if extractPolicy != "" {
		cfg.Extract.FailurePolicy = domain.FailurePolicy(extractPolicy)
	}
	return cfg, nil
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if _, err := cfg.Catalog.ResolveMode(); err != nil {
		return err
	}
	if err := initPipeline(cfg); err != nil {
		return err
	}
	return acquireCatalog(cmd)
}

func acquireCatalog(cmd *cobra.Command) error {
	if acquirer == nil {
		return errors.New("acquirer not configured")
	}
	catalog, run, err := acquirer.AcquireCatalog(cmd.Context())
	printRun(cmd, run)
	if err != nil {
		return fmt.Errorf("catalog failed: %w", err)
	}
	cmd.Printf("Catalog holds %d images.\n", catalog.Len())
	return nil
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if err := initPipeline(cfg); err != nil {
		return err
	}
	return downloadAssets(cmd)
}

func downloadAssets(cmd *cobra.Command) error {
	if acquirer == nil {
		return errors.New("acquirer not configured")
	}
	run, err := runWithProgress(cmd, "Downloading", acquirer.Progress, func() (*domain.RunSummary, error) {
		return acquirer.DownloadAssets(cmd.Context())
	})
	printRun(cmd, run)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	return nil
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if err := initPipeline(cfg); err != nil {
		return err
	}
	return extractBatches(cmd, cfg.Extract.BatchSize)
}

func extractBatches(cmd *cobra.Command, batchSize int) error {
	if extractor == nil {
		return errors.New("extractor not configured")
	}
	run, err := runWithProgress(cmd, "Extracting", extractor.Progress, func() (*domain.RunSummary, error) {
		return extractor.ExtractBatches(cmd.Context(), batchSize)
	})
	printRun(cmd, run)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	return nil
}

func runConsolidate(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if err := initPipeline(cfg); err != nil {
		return err
	}
	return consolidate(cmd)
}

func consolidate(cmd *cobra.Command) error {
	if extractor == nil {
		return errors.New("extractor not configured")
	}
	corpus, err := extractor.Consolidate(cmd.Context())
	if err != nil {
		return fmt.Errorf("consolidate failed: %w", err)
	}
	cmd.Printf("Corpus holds %d vectors of dimension %d.\n", corpus.Len(), corpus.Dim)
	return nil
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if _, err := cfg.Catalog.ResolveMode(); err != nil {
		return err
	}
	if err := initPipeline(cfg); err != nil {
		return err
	}

	steps := []func(*cobra.Command) error{
		acquireCatalog,
		downloadAssets,
		func(c *cobra.Command) error { return extractBatches(c, cfg.Extract.BatchSize) },
		consolidate,
	}
	for _, step := range steps {
		if err := step(cmd); err != nil {
			return err
		}
	}
	cmd.Println("Build complete.")
	return nil
}
