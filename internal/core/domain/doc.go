// Package domain defines the core business entities for clipsearch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ImageRecord / Catalog: source image URLs keyed by content address
//   - FeatureBatch: one persisted slice of image embeddings
//   - Corpus: every batch consolidated into one row-major matrix
//   - ResultRecord / ImageResult: ranked query output
//   - Config: the immutable settings every component is built from
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
