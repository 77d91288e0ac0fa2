// Package fetch downloads remote images over HTTP with an optional
// request rate limit.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.ImageFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxBytes  = 64 << 20
	DefaultUserAgent = "clipsearch/1.0"
)

// Config holds configuration for the fetcher.
type Config struct {
	// Timeout bounds each request (default: 60s).
	Timeout time.Duration

	// RateLimit caps requests per second across all callers.
	// Zero or less disables limiting.
	RateLimit float64

	// MaxBytes caps the accepted body size (default: 64 MiB).
	MaxBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

// Fetcher implements driven.ImageFetcher over net/http.
// It is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	maxBytes  int64
	userAgent string
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	f := &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return f
}

// Fetch returns the body of a successful GET on url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: %v: %w", url, err, domain.ErrExternalFetch)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", url, err, domain.ErrExternalFetch)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", url, err, domain.ErrExternalFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, domain.ErrExternalFetch)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %v: %w", url, err, domain.ErrExternalFetch)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes: %w", url, f.maxBytes, domain.ErrExternalFetch)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body: %w", url, domain.ErrExternalFetch)
	}
	return data, nil
}
