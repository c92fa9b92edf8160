package driven

// ConfigStore reads and writes application configuration.
// Keys use dot notation, e.g. "embedding.model". Typed getters return
// the zero value when a key is missing or holds another type.
type ConfigStore interface {
	// Get returns the raw value for a key and whether it exists.
	Get(key string) (any, bool)

	// GetString returns the string value for a key.
	GetString(key string) string

	// GetInt returns the integer value for a key.
	GetInt(key string) int

	// GetBool returns the boolean value for a key.
	GetBool(key string) bool

	// GetStringSlice returns the string slice value for a key.
	GetStringSlice(key string) []string

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Load re-reads the configuration from storage.
	Load() error

	// Path returns the location of the backing file.
	Path() string
}
