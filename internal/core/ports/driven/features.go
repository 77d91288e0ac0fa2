package driven

import (
	"context"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// FeatureStore persists feature batches and the consolidated corpus.
type FeatureStore interface {
	// BatchExists reports whether batch i has been committed.
	BatchExists(ctx context.Context, index int) (bool, error)

	// WriteBatch commits a batch. The id list is written before the vector
	// file, so a batch is visible only once both are complete.
	WriteBatch(ctx context.Context, batch domain.FeatureBatch) error

	// ReadBatch loads a committed batch.
	ReadBatch(ctx context.Context, index int) (*domain.FeatureBatch, error)

	// ListBatches returns committed batch indexes in ascending order.
	ListBatches(ctx context.Context) ([]int, error)

	// WriteCorpus replaces the consolidated corpus.
	WriteCorpus(ctx context.Context, corpus *domain.Corpus) error

	// ReadCorpus loads the consolidated corpus. A missing corpus wraps
	// domain.ErrNotFound.
	ReadCorpus(ctx context.Context) (*domain.Corpus, error)
}
