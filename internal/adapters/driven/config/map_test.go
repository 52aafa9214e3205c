package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMap_TypedGetters(t *testing.T) {
	m := NewMap(map[string]any{
		"chunking.size":       int64(800),
		"query.min_score":     0.25,
		"query.stream_delay":  "10ms",
		"server.cors_origins": []any{"http://a", "http://b"},
		"vector_store.path":   "/tmp/vectors.db",
		"watch.prune":         true,
	})

	assert.Equal(t, 800, m.GetInt("chunking.size"))
	assert.InDelta(t, 0.25, m.GetFloat("query.min_score"), 1e-9)
	assert.Equal(t, 10*time.Millisecond, m.GetDuration("query.stream_delay"))
	assert.Equal(t, []string{"http://a", "http://b"}, m.GetStringSlice("server.cors_origins"))
	assert.Equal(t, "/tmp/vectors.db", m.GetString("vector_store.path"))
	assert.True(t, m.GetBool("watch.prune"))
	assert.Zero(t, m.GetInt("missing"))
}

func TestMap_NewCopiesInitial(t *testing.T) {
	initial := map[string]any{"a": 1}
	m := NewMap(initial)
	initial["a"] = 2

	assert.Equal(t, 1, m.GetInt("a"))
	assert.NotNil(t, NewMap(nil).Snapshot())
}

func TestMap_PutUndo(t *testing.T) {
	m := NewMap(map[string]any{"existing": "old"})

	undoExisting := m.Put("existing", "new")
	undoAdded := m.Put("added", "value")
	assert.Equal(t, "new", m.GetString("existing"))
	assert.Equal(t, []string{"added", "existing"}, m.Keys())

	undoAdded()
	undoExisting()

	assert.Equal(t, "old", m.GetString("existing"))
	_, ok := m.Get("added")
	assert.False(t, ok)
}

func TestMap_ReplaceAndSnapshot(t *testing.T) {
	m := NewMap(map[string]any{"a": 1})

	m.Replace(map[string]any{"b": 2})
	snap := m.Snapshot()
	snap["c"] = 3

	assert.Equal(t, []string{"b"}, m.Keys())

	m.Replace(nil)
	assert.Empty(t, m.Keys())
}

func TestMap_Concurrency(t *testing.T) {
	m := NewMap(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Put("key", i)
			_ = m.GetInt("key")
			_ = m.Snapshot()
		}(i)
	}
	wg.Wait()

	_, ok := m.Get("key")
	assert.True(t, ok)
}
