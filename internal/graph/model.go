// Package graph provides the property graph data model for propfinder.
//
// It defines the identifiers, tiers and relation edges shared by every
// component, plus the read-only adjacency index built from the claims
// triples table.
package graph

import "strconv"

// PropertyID is the opaque identifier of a schema property (e.g. "P569").
type PropertyID string

// Tier is a priority bucket for candidates. Lower values rank first when
// results are merged, so Tier0 is the highest priority.
type Tier int

const (
	// Tier0 holds candidates promoted by a required-qualifier constraint.
	Tier0 Tier = 0
	// Tier1 holds direct search matches.
	Tier1 Tier = 1
	// Tier2 holds candidates reached through equivalence / naming relations.
	Tier2 Tier = 2
	// Tier3 holds candidates reached through see-also relations.
	Tier3 Tier = 3
	// Tier4 holds candidates demoted by the scope filter.
	Tier4 Tier = 4
)

// Tiers lists every tier in merge order.
var Tiers = []Tier{Tier0, Tier1, Tier2, Tier3, Tier4}

// String returns the tier as a decimal string.
func (t Tier) String() string {
	return strconv.Itoa(int(t))
}

// Scope selects how a property is going to be used.
type Scope string

const (
	// ScopeQualifier seeks properties used as qualifiers.
	ScopeQualifier Scope = "qualifier"
	// ScopeValue seeks properties used as main values.
	ScopeValue Scope = "value"
	// ScopeBoth accepts either use.
	ScopeBoth Scope = "both"
)

// ParseScope parses a scope name. The empty string means ScopeBoth.
func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case "", ScopeBoth:
		return ScopeBoth, true
	case ScopeQualifier, ScopeValue:
		return Scope(s), true
	}
	return "", false
}

// RelationName is the label of a graph relation (e.g. "P1696").
type RelationName string

// Well-known relations used to propagate candidates.
const (
	RelInverse        RelationName = "P1696" // inverse property
	RelSubpropertyOf  RelationName = "P1647" // subproperty of
	RelValueHierarchy RelationName = "P6609" // value hierarchy property
	RelSeeAlso        RelationName = "P1659" // related property (see also)
)

// RelationEdge is a directed edge between two properties under a relation.
type RelationEdge struct {
	// Relation is the name of the relation.
	Relation RelationName

	// Source is the subject property.
	Source PropertyID

	// Target is the object property.
	Target PropertyID
}

// RelationSpec configures how one relation is indexed.
type RelationSpec struct {
	// Name is the relation label as it appears in the triples table.
	Name RelationName `mapstructure:"name"`

	// Bidirectional also indexes every edge from target back to source.
	Bidirectional bool `mapstructure:"bidirectional"`
}

// IDs converts strings to property identifiers, skipping empty values.
func IDs(values ...string) []PropertyID {
	ids := make([]PropertyID, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		ids = append(ids, PropertyID(v))
	}
	return ids
}

// DefaultRelationSpecs returns the relations indexed by default. Inverse
// and related-naming links hold in both directions; see-also is directional.
func DefaultRelationSpecs() []RelationSpec {
	return []RelationSpec{
		{Name: RelInverse, Bidirectional: true},
		{Name: RelSubpropertyOf, Bidirectional: true},
		{Name: RelValueHierarchy, Bidirectional: true},
		{Name: RelSeeAlso},
	}
}
