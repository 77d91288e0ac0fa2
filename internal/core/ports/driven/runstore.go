package driven

import (
	"context"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

// RunStore keeps a history of pipeline runs.
type RunStore interface {
	// Record persists a finished run.
	Record(ctx context.Context, run domain.RunSummary) error

	// List returns recent runs, most recent first. An empty kind matches all.
	List(ctx context.Context, kind domain.RunKind, limit int) ([]domain.RunSummary, error)
}
