package extractors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/extractors/mupdf"
	"github.com/custodia-labs/neuroquery/internal/extractors/pdf"
)

// Engine names.
const (
	EnginePDF   = "pdf"
	EngineMuPDF = "mupdf"
)

// Registry maps engine names to extractors.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]driven.Extractor)}
}

// DefaultRegistry returns a registry with every built-in engine.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(mupdf.New())
	return r
}

// Register adds or replaces an extractor under its Name.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Get returns the extractor for engine. An empty name selects the pdf engine.
func (r *Registry) Get(engine string) (driven.Extractor, error) {
	if engine == "" {
		engine = EnginePDF
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("%w: extraction engine %q", domain.ErrUnsupportedType, engine)
	}
	return e, nil
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
