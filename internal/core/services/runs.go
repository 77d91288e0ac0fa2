package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

func startRun(kind domain.RunKind) *domain.RunSummary {
	return &domain.RunSummary{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
	}
}

// finishRun stamps the run and records it when a store is configured.
// A failure to record is logged, never returned: the run itself succeeded.
func finishRun(ctx context.Context, store driven.RunStore, run *domain.RunSummary, runErr error) {
	run.FinishedAt = time.Now()
	if runErr != nil {
		run.Error = runErr.Error()
	}
	logger.Info("%s run %s: total=%d processed=%d skipped=%d failed=%d dropped=%d (%s)",
		run.Kind, run.ID, run.Total, run.Processed, run.Skipped, run.Failed, run.Dropped,
		run.Duration().Round(time.Millisecond))

	if store == nil {
		return
	}
	// Record even if the run was cancelled.
	if err := store.Record(context.WithoutCancel(ctx), *run); err != nil {
		logger.Warn("Failed to record %s run: %v", run.Kind, err)
	}
}
