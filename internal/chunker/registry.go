package chunker

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Registered strategy names.
const (
	StrategyWords     = "words"
	StrategyRecursive = "recursive"
)

// BuilderFunc creates a Chunker from chunking settings.
type BuilderFunc func(cfg domain.ChunkingSettings) driven.Chunker

// Registry maps strategy names to their builders.
// It allows the chunker to be selected from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// DefaultRegistry returns a registry holding the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(StrategyWords, func(cfg domain.ChunkingSettings) driven.Chunker {
		return NewWords(WithChunkSize(cfg.Size), WithOverlap(cfg.Overlap))
	})
	r.Register(StrategyRecursive, func(cfg domain.ChunkingSettings) driven.Chunker {
		return NewRecursive(WithChunkSize(cfg.Size), WithOverlap(cfg.Overlap))
	})
	return r
}

// Register adds a builder. Name should match the chunker's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates the chunker named by cfg.Strategy. An empty strategy selects words.
func (r *Registry) Build(cfg domain.ChunkingSettings) (driven.Chunker, error) {
	name := cfg.Strategy
	if name == "" {
		name = StrategyWords
	}
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: chunking strategy %q", domain.ErrUnsupportedType, name)
	}
	return builder(cfg), nil
}

// Has returns true if a strategy with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
