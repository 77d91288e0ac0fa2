package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// DataDirEnv names the environment variable that overrides the data directory.
const DataDirEnv = "CLIP_DATA_DIRECTORY"

// CatalogMode selects where the list of candidate images comes from.
type CatalogMode string

// Available catalog modes.
const (
	// CatalogModeSPARQL runs a SELECT query against a SPARQL endpoint.
	CatalogModeSPARQL CatalogMode = "sparql"

	// CatalogModeCSV reads a CSV table with a header row.
	CatalogModeCSV CatalogMode = "csv"
)

// IsValid returns true if the catalog mode is recognised.
func (m CatalogMode) IsValid() bool {
	return m == CatalogModeSPARQL || m == CatalogModeCSV
}

// String returns the string representation.
func (m CatalogMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m CatalogMode) Description() string {
	switch m {
	case CatalogModeSPARQL:
		return "SPARQL endpoint query"
	case CatalogModeCSV:
		return "CSV table"
	default:
		return unknownDescription
	}
}

// FailurePolicy controls what a failed image does to its extraction batch.
type FailurePolicy string

// Available failure policies.
const (
	// FailurePolicyImage drops only the failing image; the rest of the
	// batch is embedded and committed.
	FailurePolicyImage FailurePolicy = "image"

	// FailurePolicyBatch skips the whole batch when any image in it fails.
	FailurePolicyBatch FailurePolicy = "batch"
)

// IsValid returns true if the policy is recognised.
func (p FailurePolicy) IsValid() bool {
	return p == FailurePolicyImage || p == FailurePolicyBatch
}

// String returns the string representation.
func (p FailurePolicy) String() string {
	return string(p)
}

// StorageBackend selects where images and features are stored.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendLocal stores files beneath the data directory.
	StorageBackendLocal StorageBackend = "local"

	// StorageBackendS3 stores objects in an S3-compatible bucket.
	StorageBackendS3 StorageBackend = "s3"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageBackendLocal || b == StorageBackendS3
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// CatalogSettings configures catalog acquisition.
type CatalogSettings struct {
	// Mode is the catalog source. Empty means inferred from which of
	// Endpoint and CSVFile is set.
	Mode CatalogMode

	// Endpoint is the SPARQL endpoint URL.
	Endpoint string

	// Query is the SPARQL SELECT query text.
	Query string

	// CSVFile is the path of the input CSV table.
	CSVFile string

	// URLColumn names the column holding IIIF base URLs.
	URLColumn string

	// Path is the catalog table location relative to the storage root.
	// The local backend also accepts an absolute path.
	Path string
}

// ResolveMode returns the active catalog mode. Exactly one source must be
// configured.
func (c CatalogSettings) ResolveMode() (CatalogMode, error) {
	hasSPARQL := c.Endpoint != "" || c.Query != ""
	hasCSV := c.CSVFile != ""

	switch c.Mode {
	case CatalogModeSPARQL:
		if c.Endpoint == "" || c.Query == "" {
			return "", fmt.Errorf("sparql mode needs both endpoint and query: %w", ErrConfiguration)
		}
		return CatalogModeSPARQL, nil
	case CatalogModeCSV:
		if !hasCSV {
			return "", fmt.Errorf("csv mode needs a csv file: %w", ErrConfiguration)
		}
		return CatalogModeCSV, nil
	case "":
	default:
		return "", fmt.Errorf("unknown catalog mode %q: %w", c.Mode, ErrConfiguration)
	}

	switch {
	case hasSPARQL && hasCSV:
		return "", fmt.Errorf("both a sparql source and a csv file are set: %w", ErrConfiguration)
	case hasCSV:
		return CatalogModeCSV, nil
	case c.Endpoint != "" && c.Query != "":
		return CatalogModeSPARQL, nil
	case hasSPARQL:
		return "", fmt.Errorf("sparql source needs both endpoint and query: %w", ErrConfiguration)
	default:
		return "", fmt.Errorf("no catalog source configured: %w", ErrConfiguration)
	}
}

// AcquireSettings configures image downloads.
type AcquireSettings struct {
	// Concurrency bounds the number of downloads in flight.
	Concurrency int

	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64

	// ImageWidth is the requested rendition width in pixels.
	ImageWidth int
}

// ExtractSettings configures feature extraction.
type ExtractSettings struct {
	// BatchSize is the number of images embedded per call.
	BatchSize int

	// FailurePolicy decides whether a bad image costs its batch.
	FailurePolicy FailurePolicy
}

// SearchSettings holds façade defaults.
type SearchSettings struct {
	// Limit is the default result count.
	Limit int

	// MinScore is the default similarity floor.
	MinScore float32
}

// EmbeddingSettings configures the CLIP embedding server.
type EmbeddingSettings struct {
	// BaseURL is the embedding server endpoint.
	BaseURL string

	// Model is the model name sent with every request.
	Model string

	// Dimensions is the expected vector size. Zero accepts any.
	Dimensions int

	// Serialize forces one embedding call at a time.
	Serialize bool

	// Timeout bounds a single embedding request.
	Timeout time.Duration
}

// S3Settings configures the S3 storage backend.
type S3Settings struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// StorageSettings selects and configures the file store.
type StorageSettings struct {
	Backend StorageBackend
	S3      S3Settings
}

// Config holds every setting the core consumes. It is built once at
// process start and treated as immutable afterwards.
type Config struct {
	// DataDir is the root for images, features, the catalog and the
	// metadata database.
	DataDir string

	Catalog   CatalogSettings
	Acquire   AcquireSettings
	Extract   ExtractSettings
	Search    SearchSettings
	Embedding EmbeddingSettings
	Storage   StorageSettings
}

// Default configuration values.
const (
	DefaultConcurrency   = 16
	DefaultBatchSize     = 64
	DefaultLimit         = 100
	DefaultMinScore      = float32(0.2)
	DefaultURLColumn     = "iiif_url"
	DefaultCatalogPath   = "images.csv"
	DefaultEmbeddingURL  = "http://localhost:51000"
	DefaultEmbedModel    = "ViT-B/32"
	DefaultEmbedDims     = 512
	DefaultEmbedTimeout  = 60 * time.Second
	DefaultFailurePolicy = FailurePolicyImage
)

// DefaultConfig returns a configuration with every default applied.
// DataDir is left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Catalog: CatalogSettings{
			URLColumn: DefaultURLColumn,
			Path:      DefaultCatalogPath,
		},
		Acquire: AcquireSettings{
			Concurrency: DefaultConcurrency,
			ImageWidth:  DefaultImageWidth,
		},
		Extract: ExtractSettings{
			BatchSize:     DefaultBatchSize,
			FailurePolicy: DefaultFailurePolicy,
		},
		Search: SearchSettings{
			Limit:    DefaultLimit,
			MinScore: DefaultMinScore,
		},
		Embedding: EmbeddingSettings{
			BaseURL:    DefaultEmbeddingURL,
			Model:      DefaultEmbedModel,
			Dimensions: DefaultEmbedDims,
			Timeout:    DefaultEmbedTimeout,
		},
		Storage: StorageSettings{
			Backend: StorageBackendLocal,
		},
	}
}

// Validate reports every invalid setting, joined, as ErrConfiguration.
// Catalog source selection is checked separately by ResolveMode since
// only acquisition needs it.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" && c.Storage.Backend != StorageBackendS3 {
		errs = append(errs, errors.New("data directory is not set"))
	}
	if c.Acquire.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Acquire.Concurrency))
	}
	if c.Acquire.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %g", c.Acquire.RateLimit))
	}
	if c.Acquire.ImageWidth < 1 {
		errs = append(errs, fmt.Errorf("image width must be positive, got %d", c.Acquire.ImageWidth))
	}
	if c.Extract.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.Extract.BatchSize))
	}
	if !c.Extract.FailurePolicy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown failure policy %q", c.Extract.FailurePolicy))
	}
	if c.Search.Limit < 1 {
		errs = append(errs, fmt.Errorf("default limit must be positive, got %d", c.Search.Limit))
	}
	if c.Catalog.URLColumn == "" {
		errs = append(errs, errors.New("url column is not set"))
	}
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog path is not set"))
	}
	if !c.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.Backend == StorageBackendS3 && c.Storage.S3.Bucket == "" {
		errs = append(errs, errors.New("s3 backend needs a bucket"))
	}
	if c.Storage.Backend == StorageBackendS3 && filepath.IsAbs(c.Catalog.Path) {
		errs = append(errs, fmt.Errorf("s3 backend needs a catalog path relative to the prefix, got %s", c.Catalog.Path))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
}
