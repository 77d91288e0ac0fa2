package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.CatalogSource = (*Source)(nil)

// Source reads a catalog table from a CSV file on the local filesystem.
type Source struct {
	path string
}

// NewSource creates a source for the CSV file at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Fetch parses the whole file.
func (s *Source) Fetch(_ context.Context) (*domain.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csv catalog %s: %w", s.path, domain.ErrConfiguration)
		}
		return nil, fmt.Errorf("open csv catalog: %w", err)
	}
	defer f.Close()

	table, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("csv catalog %s: %v: %w", s.path, err, domain.ErrInvalidInput)
	}
	return table, nil
}
