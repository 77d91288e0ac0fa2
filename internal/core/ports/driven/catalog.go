package driven

import (
	"context"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// CatalogSource produces the raw list of candidate images, either from a
// SPARQL endpoint or from a tabular file.
type CatalogSource interface {
	// Fetch returns every row of the source. A failure here is fatal to
	// the acquisition run.
	Fetch(ctx context.Context) (*domain.Table, error)
}

// CatalogStore persists the identifier mapping table.
type CatalogStore interface {
	// Save replaces the stored catalog.
	Save(ctx context.Context, catalog *domain.Catalog) error

	// Load reads the stored catalog. A missing catalog wraps domain.ErrNotFound.
	Load(ctx context.Context) (*domain.Catalog, error)
}

// CatalogIndex is a queryable mirror of the catalog.
// This is optional; acquisition works without it.
type CatalogIndex interface {
	// Upsert inserts or replaces records by local ID.
	Upsert(ctx context.Context, records []domain.ImageRecord) error

	// Get returns a record by local ID, or domain.ErrNotFound.
	Get(ctx context.Context, localID string) (*domain.ImageRecord, error)

	// Count returns the number of indexed records.
	Count(ctx context.Context) (int, error)
}
