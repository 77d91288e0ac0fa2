package driving

import (
	"context"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// SimilarityEngine ranks the loaded corpus against a query.
type SimilarityEngine interface {
	// Query embeds the input and returns at most numResults records, in
	// descending score order, stopping at the first score below minScore.
	// SourceURL is filled from the loaded catalog and left empty when the
	// catalog has no entry.
	Query(ctx context.Context, input domain.QueryInput, numResults int, minScore float32) ([]domain.ResultRecord, error)

	// Reload replaces the loaded corpus and catalog atomically.
	Reload(ctx context.Context) error

	// Stats describes the loaded state.
	Stats() EngineStats

	// Catalog returns the catalog loaded with the current corpus, or nil
	// before the first load.
	Catalog() *domain.Catalog
}

// EngineStats describes the corpus an engine is serving.
type EngineStats struct {
	Loaded     bool
	Images     int
	Dimensions int
	Catalog    int
}

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search applies defaults, queries the engine and resolves each match
	// to a user-facing record.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)

	// Resolve joins one match to its source URL and display link.
	Resolve(rec domain.ResultRecord) (domain.ImageResult, error)
}
