package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRelationIndex(t *testing.T) {
	t.Parallel()

	idx := NewRelationIndex(RelationSpec{Name: RelInverse, Bidirectional: true})

	assert.NotNil(t, idx)
	assert.Equal(t, 0, idx.EdgeCount())
	assert.True(t, idx.Tracks(RelInverse))
	assert.False(t, idx.Tracks(RelSeeAlso))
}

func TestRelationIndex_AddEdge(t *testing.T) {
	t.Parallel()

	t.Run("Directional", func(t *testing.T) {
		t.Parallel()
		idx := NewRelationIndex(RelationSpec{Name: RelSeeAlso})

		ok := idx.AddEdge(RelationEdge{Relation: RelSeeAlso, Source: "P1", Target: "P2"})

		assert.True(t, ok)
		assert.Equal(t, []PropertyID{"P2"}, idx.Neighbors(RelSeeAlso, "P1"))
		assert.Empty(t, idx.Neighbors(RelSeeAlso, "P2"))
	})

	t.Run("Bidirectional", func(t *testing.T) {
		t.Parallel()
		idx := NewRelationIndex(RelationSpec{Name: RelInverse, Bidirectional: true})

		idx.AddEdge(RelationEdge{Relation: RelInverse, Source: "P1", Target: "P2"})

		assert.Equal(t, []PropertyID{"P2"}, idx.Neighbors(RelInverse, "P1"))
		assert.Equal(t, []PropertyID{"P1"}, idx.Neighbors(RelInverse, "P2"))
	})

	t.Run("UntrackedRelationIgnored", func(t *testing.T) {
		t.Parallel()
		idx := NewRelationIndex(RelationSpec{Name: RelInverse})

		ok := idx.AddEdge(RelationEdge{Relation: "P31", Source: "P1", Target: "P2"})

		assert.False(t, ok)
		assert.Equal(t, 0, idx.EdgeCount())
		assert.Nil(t, idx.Neighbors("P31", "P1"))
	})

	t.Run("DuplicateEdgesCollapsed", func(t *testing.T) {
		t.Parallel()
		idx := NewRelationIndex(RelationSpec{Name: RelInverse, Bidirectional: true})

		idx.AddEdge(RelationEdge{Relation: RelInverse, Source: "P1", Target: "P2"})
		idx.AddEdge(RelationEdge{Relation: RelInverse, Source: "P2", Target: "P1"})

		assert.Equal(t, []PropertyID{"P2"}, idx.Neighbors(RelInverse, "P1"))
		assert.Equal(t, []PropertyID{"P1"}, idx.Neighbors(RelInverse, "P2"))
	})

	t.Run("PreservesInsertionOrder", func(t *testing.T) {
		t.Parallel()
		idx := NewRelationIndex(RelationSpec{Name: RelSubpropertyOf})

		idx.AddEdge(RelationEdge{Relation: RelSubpropertyOf, Source: "P1", Target: "P9"})
		idx.AddEdge(RelationEdge{Relation: RelSubpropertyOf, Source: "P1", Target: "P3"})
		idx.AddEdge(RelationEdge{Relation: RelSubpropertyOf, Source: "P1", Target: "P5"})

		assert.Equal(t, []PropertyID{"P9", "P3", "P5"}, idx.Neighbors(RelSubpropertyOf, "P1"))
	})
}

func TestRelationIndex_NeighborsOf(t *testing.T) {
	t.Parallel()

	idx := NewRelationIndex(
		RelationSpec{Name: RelInverse, Bidirectional: true},
		RelationSpec{Name: RelSubpropertyOf},
	)
	idx.AddEdge(RelationEdge{Relation: RelInverse, Source: "P1", Target: "P2"})
	idx.AddEdge(RelationEdge{Relation: RelSubpropertyOf, Source: "P1", Target: "P3"})

	got := idx.NeighborsOf("P1", RelInverse, RelSubpropertyOf, RelSeeAlso)

	assert.Equal(t, []PropertyID{"P2", "P3"}, got)
}

func TestRelationIndex_Stats(t *testing.T) {
	t.Parallel()

	idx := NewRelationIndex(RelationSpec{Name: RelInverse, Bidirectional: true})
	idx.AddEdge(RelationEdge{Relation: RelInverse, Source: "P1", Target: "P2"})

	stats := idx.Stats()

	assert.Equal(t, 1, stats["edges"])
	assert.Equal(t, 2, stats[string(RelInverse)])
}
