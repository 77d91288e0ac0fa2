package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore for testing.
type RunStore struct {
	mu   sync.RWMutex
	runs []domain.RunSummary
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// Record appends a run.
func (s *RunStore) Record(_ context.Context, run domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// List returns matching runs, most recent first.
func (s *RunStore) List(_ context.Context, kind domain.RunKind, limit int) ([]domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RunSummary
	for _, r := range slices.Backward(s.runs) {
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
