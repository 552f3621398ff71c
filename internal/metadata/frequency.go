package metadata

import "github.com/Benny93/propfinder-go/internal/graph"

// Counts are the corpus usage counts of a property.
type Counts struct {
	MainValue int64
	Qualifier int64
	Total     int64
}

// FrequencyTable maps properties to usage counts. Immutable once built.
type FrequencyTable struct {
	counts map[graph.PropertyID]Counts
}

// NewFrequencyTable wraps the given counts. The map must not be modified afterwards.
func NewFrequencyTable(counts map[graph.PropertyID]Counts) *FrequencyTable {
	if counts == nil {
		counts = make(map[graph.PropertyID]Counts)
	}
	return &FrequencyTable{counts: counts}
}

// Count returns the usage count relevant for scope: main-value uses for
// ScopeValue, qualifier uses for ScopeQualifier and their sum otherwise.
// Unknown properties count as zero.
func (f *FrequencyTable) Count(id graph.PropertyID, scope graph.Scope) int64 {
	c, ok := f.counts[id]
	if !ok {
		return 0
	}
	switch scope {
	case graph.ScopeValue:
		return c.MainValue
	case graph.ScopeQualifier:
		return c.Qualifier
	default:
		return c.MainValue + c.Qualifier
	}
}

// Get returns the raw counts for id.
func (f *FrequencyTable) Get(id graph.PropertyID) (Counts, bool) {
	c, ok := f.counts[id]
	return c, ok
}

// Len returns the number of properties with counts.
func (f *FrequencyTable) Len() int {
	return len(f.counts)
}
