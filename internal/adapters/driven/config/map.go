package config

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Map is a concurrency-safe set of dotted keys with the typed getters of
// driven.ConfigStore. Stores embed it and add persistence.
type Map struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewMap returns a Map holding a copy of initial.
func NewMap(initial map[string]any) *Map {
	m := &Map{m: make(map[string]any, len(initial))}
	maps.Copy(m.m, initial)
	return m
}

func (m *Map) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[key]
	return v, ok
}

func (m *Map) GetString(key string) string { return get(m, key, AsString) }
func (m *Map) GetInt(key string) int { return get(m, key, AsInt) }
func (m *Map) GetFloat(key string) float64 { return get(m, key, AsFloat) }
func (m *Map) GetBool(key string) bool { return get(m, key, AsBool) }
func (m *Map) GetDuration(key string) time.Duration { return get(m, key, AsDuration) }
func (m *Map) GetStringSlice(key string) []string { return get(m, key, AsStringSlice) }

func get[T any](m *Map, key string, conv func(any) T) T {
	v, _ := m.Get(key)
	return conv(v)
}

// Put stores value and returns an undo func that restores the previous state of key.
func (m *Map) Put(key string, value any) (undo func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, had := m.m[key]
	m.m[key] = value
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if had {
			m.m[key] = prev
		} else {
			delete(m.m, key)
		}
	}
}

// Replace swaps in a copy of values.
func (m *Map) Replace(values map[string]any) {
	next := maps.Clone(values)
	if next == nil {
		next = make(map[string]any)
	}
	m.mu.Lock()
	m.m = next
	m.mu.Unlock()
}

// Snapshot returns a copy of every key and value.
func (m *Map) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.m)
}

// Keys returns every key in sorted order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.m))
}
