package enrich

import (
	"fmt"
	"sort"

	"BeerSync/internal/ports"
)

// Registry keeps a mapping from source names to their enricher implementations.
type Registry struct {
	sources map[string]ports.Enricher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]ports.Enricher{}}
}

// Register adds or replaces an enricher under its own name.
func (r *Registry) Register(e ports.Enricher) {
	if r.sources == nil {
		r.sources = map[string]ports.Enricher{}
	}
	r.sources[e.Name()] = e
}

// Resolve returns an enricher by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Enricher, error) {
	if e, ok := r.sources[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("enrichment source %s is not registered", name)
}

// Names lists the registered sources in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
