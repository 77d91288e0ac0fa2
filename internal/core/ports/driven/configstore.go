package driven

// ConfigStore persists settings as dot-separated keys, such as
// "storage.s3.bucket". Values keep the type they were stored or parsed
// with; TOML integers, for instance, come back as int64. Typed reads with
// defaults are the settings service's concern.
type ConfigStore interface {
	// Get returns a stored value and whether the key exists.
	Get(key string) (any, bool)

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Path returns where the settings are stored.
	Path() string
}
