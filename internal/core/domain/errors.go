package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors; adapters wrap their
// failures with one of these so callers can classify with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// unknown query mode.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates a missing or contradictory setting, or a
	// required artefact (corpus, catalog) that is absent or malformed.
	// It is reported before any work begins.
	ErrConfiguration = errors.New("configuration error")

	// ErrExternalFetch indicates a catalog endpoint or image download failed.
	ErrExternalFetch = errors.New("external fetch failed")

	// ErrProcessing indicates an image or batch could not be embedded.
	ErrProcessing = errors.New("processing failed")

	// ErrIntegrity indicates a corpus identifier has no catalog entry.
	ErrIntegrity = errors.New("integrity error")

	// ErrDecode indicates an empty or unparseable image payload.
	ErrDecode = errors.New("decode error")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or cannot be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
