package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure SerializedEmbedder implements the interface.
var _ driven.Embedder = (*SerializedEmbedder)(nil)

// SerializedEmbedder admits one embedding call at a time, for backends
// that share a single accelerator context. Callers stay concurrent; only
// the calls into the backend queue up.
type SerializedEmbedder struct {
	mu    sync.Mutex
	inner driven.Embedder
}

// NewSerializedEmbedder wraps inner.
func NewSerializedEmbedder(inner driven.Embedder) *SerializedEmbedder {
	return &SerializedEmbedder{inner: inner}
}

// EmbedText embeds a free-text query.
func (s *SerializedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedText(ctx, text)
}

// EmbedImage embeds one encoded image.
func (s *SerializedEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedImage(ctx, image)
}

// EmbedImages embeds a batch of encoded images.
func (s *SerializedEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedImages(ctx, images)
}

// Dimensions returns the embedding vector size.
func (s *SerializedEmbedder) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *SerializedEmbedder) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the backend is reachable.
func (s *SerializedEmbedder) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *SerializedEmbedder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Close()
}
