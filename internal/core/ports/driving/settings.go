package driving

import "github.com/custodia-labs/clipsearch/internal/core/domain"

// SettingsService manages persisted application settings.
type SettingsService interface {
	// Config returns defaults overlaid with stored values and the
	// data directory environment variable.
	Config() (domain.Config, error)

	// Set validates and persists one setting given as text.
	Set(key, value string) error

	// Get returns the stored text of one setting, and whether it is set.
	Get(key string) (string, bool)

	// Keys lists every recognised setting key.
	Keys() []string
}
