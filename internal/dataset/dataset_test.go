package dataset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/dataset/datasettest"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
	"github.com/Benny93/propfinder-go/internal/textsplit"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	snap := datasettest.Load(t)

	assert.Equal(t, 7, snap.Metadata.Len())
	rec, ok := snap.Metadata.Get("P569")
	require.True(t, ok)
	assert.Equal(t, []string{"date of birth"}, rec.Labels)
	assert.Equal(t, []string{"birth date", "born on"}, rec.Aliases)
	assert.Equal(t, "date on which the subject was born", rec.Description)
	assert.Equal(t, metadata.TypeTime, rec.ValueType)
	assert.Equal(t, int64(6100000), rec.Statements)
	assert.InDelta(t, 0.0004, rec.PageRank, 1e-9)

	assert.Equal(t, int64(6100000), snap.Frequencies.Count("P569", graph.ScopeValue))
	assert.Equal(t, int64(12000000), snap.Frequencies.Count("P585", graph.ScopeQualifier))

	assert.Equal(t, []graph.PropertyID{"P570"}, snap.Relations.Neighbors(graph.RelInverse, "P569"))
	assert.Equal(t, []graph.PropertyID{"P569"}, snap.Relations.Neighbors(graph.RelInverse, "P570"), "inverse links are bidirectional")
	assert.Empty(t, snap.Relations.Neighbors(graph.RelSeeAlso, "P19"))
	assert.Equal(t, 3, snap.Relations.EdgeCount(), "untracked relations are skipped")

	assert.Equal(t, 4, snap.Constraints.Len())
	assert.True(t, snap.Splitter.HasDictionary())
	assert.False(t, snap.LoadedAt.IsZero())

	stats := snap.Stats()
	assert.Equal(t, 7, stats["properties"])
	assert.Equal(t, 4, stats["constraints"])
}

func TestLoad_OptionalInputs(t *testing.T) {
	t.Parallel()

	files := datasettest.Write(t, t.TempDir())
	files.Aliases = ""
	files.Descriptions = ""
	files.Metadata = ""
	files.Constraints = ""
	files.Words = ""
	files.ClaimsProperties = ""
	files.Relations = nil

	snap, err := dataset.Load(files, nil)
	require.NoError(t, err)

	rec, ok := snap.Metadata.Get("P569")
	require.True(t, ok)
	assert.Empty(t, rec.Aliases)
	assert.Empty(t, rec.Description)
	assert.Zero(t, snap.Constraints.Len())
	assert.Zero(t, snap.Relations.EdgeCount())
	assert.True(t, snap.Relations.Tracks(graph.RelSeeAlso), "default relations are tracked")
	assert.Same(t, textsplit.Default(), snap.Splitter, "built-in word list without data.words")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("MissingLabels", func(t *testing.T) {
		dir := t.TempDir()
		files := datasettest.Write(t, dir)
		require.NoError(t, os.Remove(filepath.Join(dir, files.Labels)))

		_, err := dataset.Load(files, nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("BadConstraints", func(t *testing.T) {
		dir := t.TempDir()
		files := datasettest.Write(t, dir)
		datasettest.WriteFile(t, filepath.Join(dir, files.Constraints), "{not json")

		_, err := dataset.Load(files, nil)
		assert.Error(t, err)
	})

	t.Run("BadCount", func(t *testing.T) {
		dir := t.TempDir()
		files := datasettest.Write(t, dir)
		datasettest.WriteFile(t, filepath.Join(dir, files.ClaimsCounts), "node1\tlabel\tnode2\nP569\tcount\tmany\n")

		_, err := dataset.Load(files, nil)
		assert.Error(t, err)
	})
}

func TestLoadRelations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "claims.properties.tsv")
	content := "node1\tlabel\tnode2\n" +
		"P580\tP1696\tP582\n" +
		"P569\tP31\tQ18636219\n" +
		"P19\tP1659\tP20\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	idx, err := dataset.LoadRelations(path, []graph.RelationSpec{{Name: graph.RelInverse, Bidirectional: true}})
	require.NoError(t, err)

	assert.Equal(t, 1, idx.EdgeCount(), "untracked relations are skipped")
	assert.Equal(t, []graph.PropertyID{"P580"}, idx.Neighbors(graph.RelInverse, "P582"))
	assert.Empty(t, idx.Neighbors(graph.RelSeeAlso, "P19"))
}

func TestFiles_Path(t *testing.T) {
	t.Parallel()

	files := dataset.Files{Dir: "/data"}
	assert.Equal(t, filepath.Join("/data", "labels.tsv"), files.Path("labels.tsv"))
	assert.Equal(t, "/abs/labels.tsv", files.Path("/abs/labels.tsv"))
	assert.Equal(t, "", files.Path(""))
	assert.Equal(t, "labels.tsv", dataset.Files{}.Path("labels.tsv"))
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	snap := dataset.Empty()
	assert.Zero(t, snap.Metadata.Len())
	assert.Zero(t, snap.Relations.EdgeCount())
	assert.NotNil(t, snap.Splitter)
}
