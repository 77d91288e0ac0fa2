package driven

import "context"

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read returns the full content of the named file.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the named file with data. Readers observe either the
	// previous content or the complete new content, never a partial write.
	// Parent directories are created automatically.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the paths of all files under dir, sorted lexically.
	// A missing directory yields an empty list.
	List(ctx context.Context, dir string) ([]string, error)
}
