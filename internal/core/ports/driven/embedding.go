// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Embedder maps text and images into a shared vector space.
// The model itself is opaque: vectors have a fixed dimensionality and are
// approximately unit length, and the same input always yields the same vector.
//
// Implementations may include:
//   - A CLIP inference server reached over HTTP
//   - In-process fakes for tests
type Embedder interface {
	// EmbedText embeds a free-text query.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedImage embeds one encoded image (JPEG, PNG, ...).
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)

	// EmbedImages embeds a batch of encoded images. The result has one
	// vector per input, in input order.
	EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 512 for ViT-B/32).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
