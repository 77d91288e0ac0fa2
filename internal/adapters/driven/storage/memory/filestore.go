package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore for testing.
// It counts writes per path so tests can prove a file was not rewritten.
type FileStore struct {
	mu     sync.RWMutex
	files  map[string][]byte
	writes map[string]int
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{
		files:  make(map[string][]byte),
		writes: make(map[string]int),
	}
}

// Read returns a copy of the named file.
func (s *FileStore) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("memory: read %s: %w", path, os.ErrNotExist)
	}
	return slices.Clone(data), nil
}

// Write stores a copy of data.
func (s *FileStore) Write(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = slices.Clone(data)
	s.writes[path]++
	return nil
}

// Delete removes the named file.
func (s *FileStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

// Exists reports whether the named file exists.
func (s *FileStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok, nil
}

// List returns the sorted paths under dir.
func (s *FileStore) List(_ context.Context, dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var paths []string
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Writes returns how many times path has been written.
func (s *FileStore) Writes(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[path]
}
