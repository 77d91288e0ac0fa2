package driven

import "context"

// ImageFetcher downloads remote image bytes.
type ImageFetcher interface {
	// Fetch returns the body of a successful GET on url.
	// Failures wrap domain.ErrExternalFetch.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
