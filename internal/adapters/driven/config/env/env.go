// Package env layers environment variables over another ConfigStore.
//
// A key such as "embedding.api_key" is looked up as NEUROQUERY_EMBEDDING_API_KEY
// before falling through to the wrapped store. A handful of well-known
// provider variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, OLLAMA_HOST,
// DATABASE_URL) are honoured as fallbacks for their matching keys.
package env

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/config"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Prefix is prepended to every derived variable name.
const Prefix = "NEUROQUERY_"

// Ensure Store implements the interface.
var _ driven.ConfigStore = (*Store)(nil)

// aliases maps config keys to conventional provider variables.
var aliases = map[string][]string{
	"embedding.api_key":  {"OPENAI_API_KEY"},
	"answer.llm.api_key": {"OPENAI_API_KEY", "ANTHROPIC_API_KEY"},
	"embedding.base_url": {"OLLAMA_HOST"},
	"vector_store.dsn":   {"DATABASE_URL"},
}

// Store overlays environment variables on a base store. Writes go to the base.
type Store struct {
	base   driven.ConfigStore
	lookup func(string) (string, bool)
}

// Option configures a Store.
type Option func(*Store)

// WithLookup replaces os.LookupEnv, for tests.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(s *Store) {
		s.lookup = fn
	}
}

// New wraps base with an environment overlay.
func New(base driven.ConfigStore, opts ...Option) *Store {
	s := &Store{base: base, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// VarName returns the environment variable consulted for key.
func VarName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return Prefix + strings.ToUpper(r.Replace(key))
}

// Get returns the environment value for key if set, otherwise the base value.
func (s *Store) Get(key string) (any, bool) {
	if v, ok := s.lookup(VarName(key)); ok {
		return v, true
	}
	if v, ok := s.base.Get(key); ok {
		return v, true
	}
	for _, alias := range aliases[key] {
		if v, ok := s.lookup(alias); ok && v != "" {
			return v, true
		}
	}
	return nil, false
}

// GetString retrieves a string configuration value.
func (s *Store) GetString(key string) string {
	v, _ := s.Get(key)
	return config.AsString(v)
}

// GetInt retrieves an integer configuration value.
func (s *Store) GetInt(key string) int {
	v, _ := s.Get(key)
	return config.AsInt(v)
}

// GetFloat retrieves a floating point configuration value.
func (s *Store) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	return config.AsFloat(v)
}

// GetDuration retrieves a duration configuration value.
func (s *Store) GetDuration(key string) time.Duration {
	v, _ := s.Get(key)
	return config.AsDuration(v)
}

// GetBool retrieves a boolean configuration value.
func (s *Store) GetBool(key string) bool {
	v, _ := s.Get(key)
	return config.AsBool(v)
}

// GetStringSlice retrieves a string slice configuration value.
func (s *Store) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	return config.AsStringSlice(v)
}

// Set writes through to the base store.
func (s *Store) Set(key string, value any) error {
	return s.base.Set(key, value)
}

// Save persists the base store.
func (s *Store) Save() error {
	return s.base.Save()
}

// Load reloads the base store.
func (s *Store) Load() error {
	return s.base.Load()
}

// Path returns the base store's file path.
func (s *Store) Path() string {
	return s.base.Path()
}
