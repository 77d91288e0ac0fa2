package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/clipsearch/internal/adapters/driven/catalog/csvfile"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/catalog/sparql"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/embedding/clipserver"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/fetch"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/features"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/local"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/s3store"
	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/core/services"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Services used by the commands. They are built on first use, or injected
// by tests before a command runs.
var (
	settingsService driving.SettingsService
	acquirer        driving.Acquirer
	extractor       driving.Extractor
	engine          driving.SimilarityEngine
	searchService   driving.SearchService
	runHistory      driving.RunHistory

	closers []io.Closer
)

func initSettings() error {
	if settingsService != nil {
		return nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(store)
	return nil
}

// loadConfig returns the stored configuration with the --data-dir flag applied.
func loadConfig() (domain.Config, error) {
	if settingsService == nil {
		return domain.Config{}, errors.New("settings service not configured")
	}
	cfg, err := settingsService.Config()
	if err != nil {
		return domain.Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// initPipeline builds every pipeline service from cfg. The catalog source
// is only attached when cfg selects one unambiguously.
func initPipeline(cfg domain.Config) error {
	if acquirer != nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := newFileStore(cfg)
	if err != nil {
		return err
	}
	catalogs := csvfile.NewStore(files, cfg.Catalog.Path, cfg.Catalog.URLColumn)
	featureStore := features.NewStore(files)
	fetcher := fetch.NewFetcher(fetch.Config{RateLimit: cfg.Acquire.RateLimit})

	clip := clipserver.NewEmbedder(clipserver.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Timeout:    cfg.Embedding.Timeout,
		Dimensions: cfg.Embedding.Dimensions,
	})
	closers = append(closers, clip)
	var embedder driven.Embedder = clip
	if cfg.Embedding.Serialize {
		embedder = services.NewSerializedEmbedder(clip)
	}

	source, err := newCatalogSource(cfg.Catalog)
	if err != nil {
		logger.Debug("No catalog source: %v", err)
	}

	// An empty data directory (S3 backend) puts the database in its default location.
	db, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open metadata database: %w", err)
	}
	closers = append(closers, db)

	acq := services.NewAcquirer(cfg, source, catalogs, files, fetcher)
	acq.SetCatalogIndex(db.CatalogIndex())
	acq.SetRunStore(db.RunStore())

	ext := services.NewExtractor(cfg, files, featureStore, embedder)
	ext.SetRunStore(db.RunStore())

	eng := services.NewSimilarityEngine(featureStore, catalogs, embedder, fetcher)

	acquirer = acq
	extractor = ext
	engine = eng
	searchService = services.NewQueryService(cfg, eng)
	runHistory = db.RunStore()
	return nil
}

func newFileStore(cfg domain.Config) (driven.FileStore, error) {
	if cfg.Storage.Backend == domain.StorageBackendS3 {
		s3cfg := cfg.Storage.S3
		logger.Debug("Using s3://%s/%s", s3cfg.Bucket, s3cfg.Prefix)
		return s3store.New(s3store.NewClient(s3cfg), s3cfg.Bucket, s3cfg.Prefix), nil
	}
	store, err := local.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}
	logger.Debug("Using data directory %s", store.Root())
	return store, nil
}

// newCatalogSource returns nil and an ErrConfiguration error when cfg does
// not name exactly one source.
func newCatalogSource(cfg domain.CatalogSettings) (driven.CatalogSource, error) {
	mode, err := cfg.ResolveMode()
	if err != nil {
		return nil, err
	}
	if mode == domain.CatalogModeCSV {
		return csvfile.NewSource(cfg.CSVFile), nil
	}
	return sparql.NewSource(sparql.Config{Endpoint: cfg.Endpoint, Query: cfg.Query}), nil
}

// closeServices releases everything initPipeline opened.
func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Error("close: %v", err)
		}
	}
	closers = nil
}
