package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/config"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// ConfigFile is the configuration file name inside the data directory.
const ConfigFile = "config.toml"

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore persists settings as TOML. Dotted keys ("embedding.provider")
// map onto TOML tables.
type ConfigStore struct {
	*config.Map

	// writeMu serialises Set and Save so the file matches the last write.
	writeMu sync.Mutex
	path    string
}

// NewConfigStore opens {dir}/config.toml, creating dir if needed.
// An empty dir means ~/.neuroquery.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".neuroquery")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return NewConfigStoreAt(filepath.Join(dir, ConfigFile))
}

// NewConfigStoreAt opens the file at path, as given by --config.
// A missing file is an empty config.
func NewConfigStoreAt(path string) (*ConfigStore, error) {
	s := &ConfigStore{Map: config.NewMap(nil), path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set stores value and writes the file. The value is dropped again when
// the write fails.
func (s *ConfigStore) Set(key string, value any) error {
	if key == "" {
		return errors.New("config: empty key")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	undo := s.Put(key, value)
	if err := s.write(); err != nil {
		undo()
		return err
	}
	return nil
}

func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write()
}

func (s *ConfigStore) write() error {
	tables, err := unflattenMap(s.Snapshot())
	if err != nil {
		return err
	}
	data, err := toml.Marshal(tables)
	if err != nil {
		return fmt.Errorf("config: encoding %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load replaces every value with the file's contents.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", s.path, err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("config: parsing %s: %w", s.path, err)
	}
	s.Replace(flattenMap(tables, ""))
	return nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

// flattenMap turns TOML tables into dotted keys: {"a": {"b": 1}} is {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			maps.Copy(result, flattenMap(nested, fullKey))
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// unflattenMap is the inverse of flattenMap, so the file keeps TOML tables.
// A key that is both a value and a table prefix is an error.
func unflattenMap(flat map[string]any) (map[string]any, error) {
	root := make(map[string]any)

	for _, key := range slices.Sorted(maps.Keys(flat)) {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, exists := node[part]
			if !exists {
				next := make(map[string]any)
				node[part] = next
				node = next
				continue
			}
			next, ok := child.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("config: key %q conflicts with value at %q", key, part)
			}
			node = next
		}

		leaf := parts[len(parts)-1]
		if _, ok := node[leaf].(map[string]any); ok {
			return nil, fmt.Errorf("config: key %q conflicts with table", key)
		}
		node[leaf] = flat[key]
	}

	return root, nil
}
