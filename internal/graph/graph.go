package graph

// RelationIndex is a read-only adjacency structure over property relations.
//
// One adjacency map is kept per tracked relation. A relation configured as
// bidirectional indexes every edge in both directions. Edges for relations
// that are not tracked are ignored.
//
// The index is populated with AddEdge while it is being built and must not
// be mutated once it is shared; all lookups are then safe for concurrent use
// without locking.
type RelationIndex struct {
	specs     map[RelationName]RelationSpec
	adjacency map[RelationName]map[PropertyID][]PropertyID

	// seen deduplicates (relation, source, target) so repeated triples do
	// not produce repeated neighbours.
	seen      map[RelationEdge]struct{}
	edgeCount int
}

// NewRelationIndex creates an empty index tracking the given relations.
func NewRelationIndex(specs ...RelationSpec) *RelationIndex {
	idx := &RelationIndex{
		specs:     make(map[RelationName]RelationSpec, len(specs)),
		adjacency: make(map[RelationName]map[PropertyID][]PropertyID, len(specs)),
		seen:      make(map[RelationEdge]struct{}),
	}
	for _, spec := range specs {
		idx.specs[spec.Name] = spec
		idx.adjacency[spec.Name] = make(map[PropertyID][]PropertyID)
	}
	return idx
}

// Tracks reports whether the relation is indexed.
func (idx *RelationIndex) Tracks(rel RelationName) bool {
	_, ok := idx.specs[rel]
	return ok
}

// AddEdge indexes an edge. It returns false when the relation is not tracked.
func (idx *RelationIndex) AddEdge(edge RelationEdge) bool {
	spec, ok := idx.specs[edge.Relation]
	if !ok {
		return false
	}

	idx.link(edge.Relation, edge.Source, edge.Target)
	if spec.Bidirectional {
		idx.link(edge.Relation, edge.Target, edge.Source)
	}
	idx.edgeCount++
	return true
}

func (idx *RelationIndex) link(rel RelationName, source, target PropertyID) {
	key := RelationEdge{Relation: rel, Source: source, Target: target}
	if _, dup := idx.seen[key]; dup {
		return
	}
	idx.seen[key] = struct{}{}
	idx.adjacency[rel][source] = append(idx.adjacency[rel][source], target)
}

// Neighbors returns the targets connected to source by the relation, in
// insertion order. The returned slice must not be modified.
func (idx *RelationIndex) Neighbors(rel RelationName, source PropertyID) []PropertyID {
	adj, ok := idx.adjacency[rel]
	if !ok {
		return nil
	}
	return adj[source]
}

// NeighborsOf concatenates the neighbours of source across several relations.
func (idx *RelationIndex) NeighborsOf(source PropertyID, rels ...RelationName) []PropertyID {
	var result []PropertyID
	for _, rel := range rels {
		result = append(result, idx.Neighbors(rel, source)...)
	}
	return result
}

// EdgeCount returns the number of accepted edges.
func (idx *RelationIndex) EdgeCount() int {
	return idx.edgeCount
}

// Stats returns a summary of index size per relation.
func (idx *RelationIndex) Stats() map[string]int {
	stats := map[string]int{
		"edges": idx.edgeCount,
	}
	for rel, adj := range idx.adjacency {
		stats[string(rel)] = len(adj)
	}
	return stats
}
