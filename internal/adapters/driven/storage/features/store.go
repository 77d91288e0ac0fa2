// Package features stores feature batches and the consolidated corpus as
// NumPy .npy matrices with sidecar CSV id lists on top of a FileStore.
package features

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.FeatureStore = (*Store)(nil)

// Store implements driven.FeatureStore over a FileStore.
type Store struct {
	files driven.FileStore
}

// NewStore creates a feature store rooted at the given file store.
func NewStore(files driven.FileStore) *Store {
	return &Store{files: files}
}

// BatchExists reports whether the vector file of batch i is present.
func (s *Store) BatchExists(ctx context.Context, index int) (bool, error) {
	return s.files.Exists(ctx, domain.BatchVectorsPath(index))
}

// WriteBatch writes the id list, then the vector file that commits the batch.
func (s *Store) WriteBatch(ctx context.Context, batch domain.FeatureBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	dim := 0
	if len(batch.Vectors) > 0 {
		dim = len(batch.Vectors[0])
	}
	flat := make([]float32, 0, len(batch.Vectors)*dim)
	for _, v := range batch.Vectors {
		flat = append(flat, v...)
	}
	return s.writePair(ctx, domain.BatchIDsPath(batch.Index), domain.BatchVectorsPath(batch.Index),
		batch.IDs, flat, dim)
}

// ReadBatch loads batch i.
func (s *Store) ReadBatch(ctx context.Context, index int) (*domain.FeatureBatch, error) {
	ids, flat, dim, err := s.readPair(ctx, domain.BatchIDsPath(index), domain.BatchVectorsPath(index))
	if err != nil {
		return nil, fmt.Errorf("batch %d: %w", index, err)
	}
	batch := &domain.FeatureBatch{Index: index, IDs: ids, Vectors: make([][]float32, len(ids))}
	for i := range ids {
		batch.Vectors[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return batch, nil
}

// ListBatches returns the committed batch indexes in ascending order.
func (s *Store) ListBatches(ctx context.Context) ([]int, error) {
	paths, err := s.files.List(ctx, domain.FeaturesDir)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	var indexes []int
	for _, p := range paths {
		if i, ok := domain.ParseBatchVectorsPath(p); ok {
			indexes = append(indexes, i)
		}
	}
	slices.Sort(indexes)
	return indexes, nil
}

// WriteCorpus replaces the consolidated corpus files, vector file last.
func (s *Store) WriteCorpus(ctx context.Context, corpus *domain.Corpus) error {
	if err := corpus.Validate(); err != nil {
		return err
	}
	return s.writePair(ctx, domain.CorpusIDsPath, domain.CorpusVectorsPath, corpus.IDs, corpus.Vectors, corpus.Dim)
}

// ReadCorpus loads the consolidated corpus.
func (s *Store) ReadCorpus(ctx context.Context) (*domain.Corpus, error) {
	ids, flat, dim, err := s.readPair(ctx, domain.CorpusIDsPath, domain.CorpusVectorsPath)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	corpus := &domain.Corpus{IDs: ids, Dim: dim, Vectors: flat}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	return corpus, nil
}

// writePair replaces the id list and then the vector file. Readers that
// wait for the vector file always find the matching id list in place.
func (s *Store) writePair(ctx context.Context, idsPath, vectorsPath string, ids []string, flat []float32, dim int) error {
	idData, err := encodeIDs(ids)
	if err != nil {
		return fmt.Errorf("encode %s: %w", idsPath, err)
	}
	if err := s.files.Write(ctx, idsPath, idData); err != nil {
		return fmt.Errorf("write %s: %w", idsPath, err)
	}
	if err := s.files.Write(ctx, vectorsPath, encodeMatrix(flat, len(ids), dim)); err != nil {
		return fmt.Errorf("write %s: %w", vectorsPath, err)
	}
	return nil
}

func (s *Store) readPair(ctx context.Context, idsPath, vectorsPath string) ([]string, []float32, int, error) {
	vecData, err := s.files.Read(ctx, vectorsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, 0, fmt.Errorf("%s: %w", vectorsPath, domain.ErrNotFound)
		}
		return nil, nil, 0, fmt.Errorf("read %s: %w", vectorsPath, err)
	}
	flat, rows, dim, err := decodeMatrix(vecData)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("decode %s: %v: %w", vectorsPath, err, domain.ErrIntegrity)
	}

	idData, err := s.files.Read(ctx, idsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, 0, fmt.Errorf("%s: %w", idsPath, domain.ErrIntegrity)
		}
		return nil, nil, 0, fmt.Errorf("read %s: %w", idsPath, err)
	}
	ids, err := decodeIDs(idData)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("decode %s: %v: %w", idsPath, err, domain.ErrIntegrity)
	}
	if len(ids) != rows {
		return nil, nil, 0, fmt.Errorf("%s has %d ids but %s has %d rows: %w",
			idsPath, len(ids), vectorsPath, rows, domain.ErrIntegrity)
	}
	return ids, flat, dim, nil
}

func encodeIDs(ids []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{domain.IDColumn}); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := w.Write([]string{id}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// decodeIDs reads the image_id column. Extra columns, such as a leading
// index written by dataframe tools, are ignored.
func decodeIDs(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty id list")
		}
		return nil, err
	}
	col := slices.Index(header, domain.IDColumn)
	if col < 0 {
		return nil, fmt.Errorf("missing %s column", domain.IDColumn)
	}
	var ids []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		if col >= len(rec) {
			return nil, fmt.Errorf("line %d: missing %s", len(ids)+2, domain.IDColumn)
		}
		ids = append(ids, rec[col])
	}
}
