// Package registry holds the process-local source registry and the router
// that ranks sources for a query.
//
// The registry is read-only during a run: sources are registered at startup,
// and the orchestrator only reads. Registration after runs have started is
// still safe (RWMutex) but not expected.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/keifu-ai/keifu/internal/model"
)

// Source is the capability contract every genealogical data source implements.
// Search must be safe for concurrent calls on disjoint queries; the executor
// does not serialize calls to a single source.
type Source interface {
	Name() string
	Metadata() model.SourceMetadata
	Search(ctx context.Context, query model.SearchQuery) ([]model.RawRecord, error)
}

// RankedSource is one entry of the router's ranking output.
type RankedSource struct {
	Name     string
	Priority int
}

// Registry maps source names to handles and ranks them for queries.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source. Registering a duplicate name is an error; sources
// are identified by name everywhere downstream (budgets, trace events).
func (r *Registry) Register(s Source) error {
	name := s.Name()
	if name == "" {
		return fmt.Errorf("registry: source has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("registry: source %q already registered", name)
	}
	r.sources[name] = s
	return nil
}

// Lookup returns the handle for name. The second return is false when the
// name is unknown; the executor turns that into a "not registered" failure,
// never a fatal error.
func (r *Registry) Lookup(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Names returns all registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// RankForQuery orders sources by fit for the query and region.
//
// Priority = 2·region_match + record_type_matches + tier_bonus, where
// region_match is 1 iff the source declares the region, record_type_matches
// counts the query's record types the source supports, and tier_bonus is 1
// for sources hinting an original tier. The sort is descending by priority
// with ties broken by name ascending, so identical registries always produce
// identical plans.
func (r *Registry) RankForQuery(query model.SearchQuery, region model.Region) []RankedSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ranked := make([]RankedSource, 0, len(r.sources))
	for name, s := range r.sources {
		meta := s.Metadata()
		priority := 0
		if region != "" && meta.SupportsRegion(region) {
			priority += 2
		}
		priority += recordTypeMatches(query.RecordTypes, meta.RecordTypes)
		if meta.TierHint == model.TierOriginal {
			priority++
		}
		ranked = append(ranked, RankedSource{Name: name, Priority: priority})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func recordTypeMatches(want, have []string) int {
	if len(want) == 0 || len(have) == 0 {
		return 0
	}
	supported := make(map[string]bool, len(have))
	for _, t := range have {
		supported[t] = true
	}
	matches := 0
	for _, t := range want {
		if supported[t] {
			matches++
		}
	}
	return matches
}
