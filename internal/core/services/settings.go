package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
	"github.com/custodia-labs/clipsearch/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyDataDir        = "data_dir"
	keyCatalogMode    = "catalog.mode"
	keyCatalogURL     = "catalog.endpoint"
	keyCatalogQuery   = "catalog.query"
	keyCatalogCSV     = "catalog.csv"
	keyURLColumn      = "catalog.url_column"
	keyCatalogPath    = "catalog.path"
	keyConcurrency    = "acquire.concurrency"
	keyRateLimit      = "acquire.rate_limit"
	keyImageWidth     = "acquire.image_width"
	keyBatchSize      = "extract.batch_size"
	keyFailurePolicy  = "extract.failure_policy"
	keySearchLimit    = "search.limit"
	keyMinScore       = "search.min_score"
	keyEmbedURL       = "embedding.url"
	keyEmbedModel     = "embedding.model"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedSerialize = "embedding.serialize"
	keyEmbedTimeout   = "embedding.timeout"
	keyStorage        = "storage.backend"
	keyS3Bucket       = "storage.s3.bucket"
	keyS3Prefix       = "storage.s3.prefix"
	keyS3Region       = "storage.s3.region"
	keyS3Endpoint     = "storage.s3.endpoint"
	keyS3PathStyle    = "storage.s3.path_style"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

var settingKinds = map[string]valueKind{
	keyDataDir:        kindString,
	keyCatalogMode:    kindString,
	keyCatalogURL:     kindString,
	keyCatalogQuery:   kindString,
	keyCatalogCSV:     kindString,
	keyURLColumn:      kindString,
	keyCatalogPath:    kindString,
	keyConcurrency:    kindInt,
	keyRateLimit:      kindFloat,
	keyImageWidth:     kindInt,
	keyBatchSize:      kindInt,
	keyFailurePolicy:  kindString,
	keySearchLimit:    kindInt,
	keyMinScore:       kindFloat,
	keyEmbedURL:       kindString,
	keyEmbedModel:     kindString,
	keyEmbedDims:      kindInt,
	keyEmbedSerialize: kindBool,
	keyEmbedTimeout:   kindDuration,
	keyStorage:        kindString,
	keyS3Bucket:       kindString,
	keyS3Prefix:       kindString,
	keyS3Region:       kindString,
	keyS3Endpoint:     kindString,
	keyS3PathStyle:    kindBool,
}

// SettingsService builds the process configuration from stored settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Config returns defaults overlaid with stored values. The data directory
// environment variable takes precedence over the stored data directory.
// Unusable stored values fall back to their defaults with a warning.
func (s *SettingsService) Config() (domain.Config, error) {
	cfg := domain.DefaultConfig()

	cfg.DataDir = s.getString(keyDataDir, cfg.DataDir)
	if dir := s.getenv(domain.DataDirEnv); dir != "" {
		cfg.DataDir = dir
	}

	cfg.Catalog.Mode = domain.CatalogMode(s.getString(keyCatalogMode, string(cfg.Catalog.Mode)))
	cfg.Catalog.Endpoint = s.getString(keyCatalogURL, cfg.Catalog.Endpoint)
	cfg.Catalog.Query = s.getString(keyCatalogQuery, cfg.Catalog.Query)
	cfg.Catalog.CSVFile = s.getString(keyCatalogCSV, cfg.Catalog.CSVFile)
	cfg.Catalog.URLColumn = s.getString(keyURLColumn, cfg.Catalog.URLColumn)
	cfg.Catalog.Path = s.getString(keyCatalogPath, cfg.Catalog.Path)

	cfg.Acquire.Concurrency = s.getPositiveInt(keyConcurrency, cfg.Acquire.Concurrency)
	cfg.Acquire.RateLimit = s.getFloat(keyRateLimit, cfg.Acquire.RateLimit)
	cfg.Acquire.ImageWidth = s.getPositiveInt(keyImageWidth, cfg.Acquire.ImageWidth)

	cfg.Extract.BatchSize = s.getPositiveInt(keyBatchSize, cfg.Extract.BatchSize)
	if p := domain.FailurePolicy(s.getString(keyFailurePolicy, "")); p != "" {
		if p.IsValid() {
			cfg.Extract.FailurePolicy = p
		} else {
			logger.Warn("Ignoring invalid %s %q", keyFailurePolicy, p)
		}
	}

	cfg.Search.Limit = s.getPositiveInt(keySearchLimit, cfg.Search.Limit)
	cfg.Search.MinScore = float32(s.getFloat(keyMinScore, float64(cfg.Search.MinScore)))

	cfg.Embedding.BaseURL = s.getString(keyEmbedURL, cfg.Embedding.BaseURL)
	cfg.Embedding.Model = s.getString(keyEmbedModel, cfg.Embedding.Model)
	cfg.Embedding.Dimensions = s.getPositiveInt(keyEmbedDims, cfg.Embedding.Dimensions)
	cfg.Embedding.Serialize = s.getBool(keyEmbedSerialize, cfg.Embedding.Serialize)
	cfg.Embedding.Timeout = s.getDuration(keyEmbedTimeout, cfg.Embedding.Timeout)

	if b := domain.StorageBackend(s.getString(keyStorage, "")); b != "" {
		if b.IsValid() {
			cfg.Storage.Backend = b
		} else {
			logger.Warn("Ignoring invalid %s %q", keyStorage, b)
		}
	}
	cfg.Storage.S3.Bucket = s.getString(keyS3Bucket, "")
	cfg.Storage.S3.Prefix = s.getString(keyS3Prefix, "")
	cfg.Storage.S3.Region = s.getString(keyS3Region, "")
	cfg.Storage.S3.Endpoint = s.getString(keyS3Endpoint, "")
	cfg.Storage.S3.PathStyle = s.getBool(keyS3PathStyle, false)

	return cfg, nil
}

// Set validates and persists one setting.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, domain.ErrInvalidInput)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, domain.ErrInvalidInput)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
		}
		parsed = b
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a duration such as 30s: %w", key, domain.ErrInvalidInput)
		}
		parsed = value
	default:
		if err := validateEnum(key, value); err != nil {
			return err
		}
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func validateEnum(key, value string) error {
	switch key {
	case keyCatalogMode:
		if value != "" && !domain.CatalogMode(value).IsValid() {
			return fmt.Errorf("catalog mode must be sparql or csv: %w", domain.ErrInvalidInput)
		}
	case keyFailurePolicy:
		if !domain.FailurePolicy(value).IsValid() {
			return fmt.Errorf("failure policy must be image or batch: %w", domain.ErrInvalidInput)
		}
	case keyStorage:
		if !domain.StorageBackend(value).IsValid() {
			return fmt.Errorf("storage backend must be local or s3: %w", domain.ErrInvalidInput)
		}
	}
	return nil
}

// Get returns the stored text of one setting.
func (s *SettingsService) Get(key string) (string, bool) {
	val, ok := s.configStore.Get(key)
	if !ok {
		return "", false
	}
	return fmt.Sprint(val), true
}

// Keys lists every recognised setting key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Helper methods for reading with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if val, ok := asString(s.lookup(key)); ok && val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getPositiveInt(key string, defaultVal int) int {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	if val, ok := asInt(raw); ok && val > 0 {
		return val
	}
	logger.Warn("Ignoring %s %v: not a positive integer", key, raw)
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	if val, ok := asFloat(raw); ok {
		return val
	}
	logger.Warn("Ignoring %s %v: not a number", key, raw)
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	if val, ok := raw.(bool); ok {
		return val
	}
	logger.Warn("Ignoring %s %v: not true or false", key, raw)
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, _ := asString(s.lookup(key))
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Warn("Ignoring invalid %s %q", key, raw)
		return defaultVal
	}
	return d
}

func (s *SettingsService) lookup(key string) any {
	val, _ := s.configStore.Get(key)
	return val
}

func asString(v any) (string, bool) {
	str, ok := v.(string)
	return str, ok
}

// asInt accepts the integer types TOML decoding and strconv produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

// asFloat also widens integers, so "min_score = 1" reads as 1.0.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
