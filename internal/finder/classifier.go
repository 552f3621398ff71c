package finder

import (
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
)

// RelationGroups names the relations that propagate candidates into the
// relation tiers.
type RelationGroups struct {
	// Related feeds Tier2 (inverse, subproperty, value hierarchy).
	Related []graph.RelationName `mapstructure:"related"`

	// SeeAlso feeds Tier3.
	SeeAlso []graph.RelationName `mapstructure:"see_also"`
}

// DefaultRelationGroups returns the standard relation grouping.
func DefaultRelationGroups() RelationGroups {
	return RelationGroups{
		Related: []graph.RelationName{graph.RelInverse, graph.RelSubpropertyOf, graph.RelValueHierarchy},
		SeeAlso: []graph.RelationName{graph.RelSeeAlso},
	}
}

// Classifier partitions seed candidates and their graph neighbours into tiers.
type Classifier struct {
	relations *graph.RelationIndex
	store     *metadata.Store
	groups    RelationGroups
}

// NewClassifier creates a classifier over the given stores.
func NewClassifier(relations *graph.RelationIndex, store *metadata.Store, groups RelationGroups) *Classifier {
	return &Classifier{relations: relations, store: store, groups: groups}
}

// Classify places the seed in Tier1, their related neighbours in Tier2 and
// their see-also neighbours in Tier3. A property already placed keeps its
// first tier. With a value type every tier keeps only properties of that type.
func (c *Classifier) Classify(seed []graph.PropertyID, vt metadata.ValueType) *CandidateSet {
	set := NewCandidateSet()
	place := func(id graph.PropertyID, tier graph.Tier) {
		if vt != "" && !c.store.HasType(id, vt) {
			return
		}
		set.Add(id, tier)
	}

	for _, id := range seed {
		place(id, graph.Tier1)
	}
	for _, id := range seed {
		for _, n := range c.relations.NeighborsOf(id, c.groups.Related...) {
			place(n, graph.Tier2)
		}
	}
	for _, id := range seed {
		for _, n := range c.relations.NeighborsOf(id, c.groups.SeeAlso...) {
			place(n, graph.Tier3)
		}
	}

	return set
}
