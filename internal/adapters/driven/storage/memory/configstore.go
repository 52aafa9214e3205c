package memory

import (
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/config"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory for --ephemeral runs and tests.
// Save and Load do nothing.
type ConfigStore struct {
	*config.Map
}

// NewConfigStore returns a store holding a copy of each initial map.
func NewConfigStore(initial ...map[string]any) *ConfigStore {
	s := &ConfigStore{Map: config.NewMap(nil)}
	for _, m := range initial {
		for k, v := range m {
			s.Put(k, v)
		}
	}
	return s
}

func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }
