package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Ensure Acquirer implements the interface.
var _ driving.Acquirer = (*Acquirer)(nil)

// Acquirer builds the catalog from a source and downloads its images.
type Acquirer struct {
	source   driven.CatalogSource
	catalogs driven.CatalogStore
	files    driven.FileStore
	fetcher  driven.ImageFetcher
	index    driven.CatalogIndex
	runs     driven.RunStore

	urlColumn   string
	concurrency int
	imageWidth  int

	progress progress
}

// NewAcquirer creates an acquirer. The source may be nil when only
// downloads from an existing catalog are needed.
func NewAcquirer(
	cfg domain.Config,
	source driven.CatalogSource,
	catalogs driven.CatalogStore,
	files driven.FileStore,
	fetcher driven.ImageFetcher,
) *Acquirer {
	concurrency := cfg.Acquire.Concurrency
	if concurrency < 1 {
		concurrency = domain.DefaultConcurrency
	}
	urlColumn := cfg.Catalog.URLColumn
	if urlColumn == "" {
		urlColumn = domain.DefaultURLColumn
	}
	return &Acquirer{
		source:      source,
		catalogs:    catalogs,
		files:       files,
		fetcher:     fetcher,
		urlColumn:   urlColumn,
		concurrency: concurrency,
		imageWidth:  cfg.Acquire.ImageWidth,
	}
}

// SetCatalogIndex mirrors every acquired catalog into index.
func (a *Acquirer) SetCatalogIndex(index driven.CatalogIndex) {
	a.index = index
}

// SetRunStore records run summaries into store.
func (a *Acquirer) SetRunStore(store driven.RunStore) {
	a.runs = store
}

// AcquireCatalog fetches the source, derives a local ID for each row from
// its URL column and persists the result. Rows without a URL are counted
// as failed and left out.
func (a *Acquirer) AcquireCatalog(ctx context.Context) (*domain.Catalog, *domain.RunSummary, error) {
	logger.Section("Catalog Acquisition")

	if a.source == nil {
		return nil, nil, fmt.Errorf("no catalog source configured: %w", domain.ErrConfiguration)
	}

	run := startRun(domain.RunKindCatalog)
	catalog, err := a.acquireCatalog(ctx, run)
	finishRun(ctx, a.runs, run, err)
	if err != nil {
		return nil, run, err
	}
	return catalog, run, nil
}

func (a *Acquirer) acquireCatalog(ctx context.Context, run *domain.RunSummary) (*domain.Catalog, error) {
	table, err := a.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if !slices.Contains(table.Columns, a.urlColumn) {
		return nil, fmt.Errorf("catalog has no %q column: %w", a.urlColumn, domain.ErrConfiguration)
	}

	columns := make([]string, 0, len(table.Columns)+1)
	for _, c := range table.Columns {
		if c != domain.LocalIDColumn {
			columns = append(columns, c)
		}
	}
	columns = append(columns, domain.LocalIDColumn)

	run.Total = len(table.Rows)
	records := make([]domain.ImageRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		url := row[a.urlColumn]
		if url == "" {
			run.Failed++
			logger.Warn("Row %d has no %s value, skipping", i, a.urlColumn)
			continue
		}
		id := AddressOf(url)

		values := make(map[string]string, len(columns))
		for _, c := range columns {
			values[c] = row[c]
		}
		values[domain.LocalIDColumn] = id

		records = append(records, domain.ImageRecord{SourceURL: url, LocalID: id, Columns: values})
	}

	catalog := domain.NewCatalog(columns, records)
	run.Processed = catalog.Len()
	run.Skipped = len(records) - catalog.Len()

	if err := a.catalogs.Save(ctx, catalog); err != nil {
		return nil, fmt.Errorf("save catalog: %w", err)
	}
	if a.index != nil {
		if err := a.index.Upsert(ctx, catalog.Records); err != nil {
			logger.Warn("Failed to index catalog: %v", err)
		}
	}

	logger.Info("Catalog: %d rows, %d images, %d duplicates, %d without url",
		run.Total, run.Processed, run.Skipped, run.Failed)
	return catalog, nil
}

// DownloadAssets fetches every catalog image that is not already stored.
// Existing files are skipped without a network call. Per-image failures
// are logged and counted; only a missing catalog fails the run.
func (a *Acquirer) DownloadAssets(ctx context.Context) (*domain.RunSummary, error) {
	logger.Section("Image Download")

	catalog, err := a.catalogs.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no catalog, acquire one first: %w", domain.ErrConfiguration)
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	run := startRun(domain.RunKindDownload)
	a.progress.reset(catalog.Len())
	logger.Info("Downloading %d images with %d workers", catalog.Len(), a.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, rec := range catalog.Records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			a.downloadOne(gctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	a.progress.fill(run)
	err = ctx.Err()
	finishRun(ctx, a.runs, run, err)
	return run, err
}

func (a *Acquirer) downloadOne(ctx context.Context, rec domain.ImageRecord) {
	path := domain.AssetPath(rec.LocalID)

	exists, err := a.files.Exists(ctx, path)
	if err != nil {
		a.progress.failed.Add(1)
		logger.Warn("Failed to check %s: %v", path, err)
		return
	}
	if exists {
		a.progress.skipped.Add(1)
		return
	}

	url := domain.RenditionURL(rec.SourceURL, a.imageWidth)
	data, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		a.progress.failed.Add(1)
		logger.Warn("Failed to download %s: %v", url, err)
		return
	}
	if err := a.files.Write(ctx, path, data); err != nil {
		a.progress.failed.Add(1)
		logger.Warn("Failed to store %s: %v", path, err)
		return
	}
	a.progress.processed.Add(1)
	logger.Debug("Downloaded %s -> %s", url, path)
}

// Progress returns a snapshot of the running download.
func (a *Acquirer) Progress() domain.Progress {
	return a.progress.snapshot()
}
