// Package extract validates extraction settings and dispatches them to the
// registered source adapters. Validation runs before any I/O so a bad spec
// never touches the filesystem.
package extract

import (
	"sort"

	"github.com/pepaaran/ingestr/internal/domain"
)

// Registry maps source kinds to their adapters. It is built once at startup
// and read-only afterwards.
type Registry struct {
	sources map[domain.SourceKind]domain.Source
}

// NewRegistry indexes the given adapters by kind. A later adapter of the
// same kind replaces an earlier one.
func NewRegistry(sources ...domain.Source) *Registry {
	r := &Registry{sources: make(map[domain.SourceKind]domain.Source, len(sources))}
	for _, s := range sources {
		r.sources[s.Kind()] = s
	}
	return r
}

// Lookup returns the adapter for a kind.
func (r *Registry) Lookup(kind domain.SourceKind) (domain.Source, bool) {
	s, ok := r.sources[kind]
	return s, ok
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(r.sources))
	for k := range r.sources {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
