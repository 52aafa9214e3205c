package driven

import "time"

// ConfigStore is the persisted settings file, addressed by dotted keys such
// as "vector_store.backend". Typed getters return the zero value for a
// missing key or a value of the wrong type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat also accepts integer values.
	GetFloat(key string) float64

	// GetDuration parses strings such as "10ms".
	GetDuration(key string) time.Duration
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value under key and writes the file.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the file backing the store, ":memory:" when there is none.
	Path() string
}
