package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CatalogStore = (*Store)(nil)

// Store persists the catalog as a CSV file on a FileStore.
type Store struct {
	files     driven.FileStore
	path      string
	urlColumn string
}

// NewStore creates a catalog store writing to path. The url column is
// needed to rebuild source URLs on load.
func NewStore(files driven.FileStore, path, urlColumn string) *Store {
	if path == "" {
		path = domain.DefaultCatalogPath
	}
	if urlColumn == "" {
		urlColumn = domain.DefaultURLColumn
	}
	return &Store{files: files, path: path, urlColumn: urlColumn}
}

// Path returns the catalog location on the file store.
func (s *Store) Path() string {
	return s.path
}

// Save writes every record under the catalog's columns.
func (s *Store) Save(ctx context.Context, catalog *domain.Catalog) error {
	rows := make([]map[string]string, len(catalog.Records))
	for i, rec := range catalog.Records {
		row := rec.Columns
		if row[domain.LocalIDColumn] != rec.LocalID || row[s.urlColumn] != rec.SourceURL {
			row = make(map[string]string, len(rec.Columns)+2)
			for k, v := range rec.Columns {
				row[k] = v
			}
			row[domain.LocalIDColumn] = rec.LocalID
			row[s.urlColumn] = rec.SourceURL
		}
		rows[i] = row
	}

	columns := catalog.Columns
	if !slices.Contains(columns, domain.LocalIDColumn) {
		columns = append(slices.Clone(columns), domain.LocalIDColumn)
	}
	data, err := FormatTable(columns, rows)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.files.Write(ctx, s.path, data); err != nil {
		return fmt.Errorf("write catalog %s: %w", s.path, err)
	}
	return nil
}

// Load reads the catalog back.
func (s *Store) Load(ctx context.Context) (*domain.Catalog, error) {
	data, err := s.files.Read(ctx, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("catalog %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}

	table, err := ParseTable(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %v: %w", s.path, err, domain.ErrIntegrity)
	}
	if !slices.Contains(table.Columns, domain.LocalIDColumn) {
		return nil, fmt.Errorf("catalog %s has no %s column: %w", s.path, domain.LocalIDColumn, domain.ErrIntegrity)
	}
	if !slices.Contains(table.Columns, s.urlColumn) {
		return nil, fmt.Errorf("catalog %s has no %q column: %w", s.path, s.urlColumn, domain.ErrConfiguration)
	}

	records := make([]domain.ImageRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		if row[domain.LocalIDColumn] == "" {
			continue
		}
		records = append(records, domain.ImageRecord{
			SourceURL: row[s.urlColumn],
			LocalID:   row[domain.LocalIDColumn],
			Columns:   row,
		})
	}
	return domain.NewCatalog(table.Columns, records), nil
}
