package driving

import (
	"context"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// Acquirer builds the catalog and downloads its images.
type Acquirer interface {
	// AcquireCatalog fetches the configured source, addresses every row
	// and persists the catalog.
	AcquireCatalog(ctx context.Context) (*domain.Catalog, *domain.RunSummary, error)

	// DownloadAssets fetches every catalog image not yet stored.
	DownloadAssets(ctx context.Context) (*domain.RunSummary, error)

	// Progress returns a snapshot of the running download.
	Progress() domain.Progress
}

// Extractor embeds stored images and consolidates the results.
type Extractor interface {
	// ExtractBatches embeds every stored image not yet held by a committed
	// batch, adding new batches after the committed ones.
	ExtractBatches(ctx context.Context, batchSize int) (*domain.RunSummary, error)

	// Consolidate rebuilds the corpus from every committed batch.
	Consolidate(ctx context.Context) (*domain.Corpus, error)

	// Progress returns a snapshot of the running extraction.
	Progress() domain.Progress
}

// RunHistory lists recorded pipeline runs.
type RunHistory interface {
	// List returns recent runs, most recent first. An empty kind matches all.
	List(ctx context.Context, kind domain.RunKind, limit int) ([]domain.RunSummary, error)
}
