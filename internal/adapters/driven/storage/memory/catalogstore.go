package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore for testing.
type CatalogStore struct {
	mu      sync.RWMutex
	catalog *domain.Catalog
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

// Save replaces the stored catalog.
func (s *CatalogStore) Save(_ context.Context, catalog *domain.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	return nil
}

// Load returns the stored catalog.
func (s *CatalogStore) Load(_ context.Context) (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return nil, fmt.Errorf("catalog: %w", domain.ErrNotFound)
	}
	return s.catalog, nil
}
