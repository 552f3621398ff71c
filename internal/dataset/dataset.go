// Package dataset loads the static lookup tables into an immutable snapshot.
package dataset

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Benny93/propfinder-go/internal/constraints"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
	"github.com/Benny93/propfinder-go/internal/tables"
	"github.com/Benny93/propfinder-go/internal/textsplit"
)

// Files names the static inputs. Relative paths are resolved against Dir.
// Empty optional paths are skipped.
type Files struct {
	Dir              string `mapstructure:"dir"`
	Labels           string `mapstructure:"labels"`
	Aliases          string `mapstructure:"aliases"`
	Descriptions     string `mapstructure:"descriptions"`
	Datatypes        string `mapstructure:"datatypes"`
	Metadata         string `mapstructure:"metadata"`
	ClaimsCounts     string `mapstructure:"claims_counts"`
	QualifiersCounts string `mapstructure:"qualifiers_counts"`
	TotalCounts      string `mapstructure:"total_counts"`
	ClaimsProperties string `mapstructure:"claims_properties"`
	Constraints      string `mapstructure:"constraints"`
	Words            string `mapstructure:"words"`

	Relations []graph.RelationSpec `mapstructure:"relations"`
}

// DefaultFiles returns the standard file layout under dir.
func DefaultFiles(dir string) Files {
	return Files{
		Dir:              dir,
		Labels:           "labels.property.en.tsv.gz",
		Aliases:          "aliases.property.en.tsv.gz",
		Descriptions:     "descriptions.property.en.tsv.gz",
		Datatypes:        "metadata.property.datatypes.tsv.gz",
		Metadata:         "metadata.json",
		ClaimsCounts:     "claims.label.entity.counts.tsv.gz",
		QualifiersCounts: "qualifiers.label.property.counts.tsv.gz",
		TotalCounts:      "all.label.property.counts.tsv.gz",
		ClaimsProperties: "claims.properties.tsv.gz",
		Constraints:      "constraints.json",
		Relations:        graph.DefaultRelationSpecs(),
	}
}

// Path resolves name against Dir. Empty names stay empty.
func (f Files) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || f.Dir == "" {
		return name
	}
	return filepath.Join(f.Dir, name)
}

// Snapshot groups every read-only store. A snapshot is never modified after
// Load returns, so it can be shared between requests without locking.
type Snapshot struct {
	Metadata    *metadata.Store
	Frequencies *metadata.FrequencyTable
	Relations   *graph.RelationIndex
	Constraints *constraints.Table
	Splitter    *textsplit.Splitter
	LoadedAt    time.Time
}

// Stats returns the size of each store.
func (s *Snapshot) Stats() map[string]int {
	return map[string]int{
		"properties":     s.Metadata.Len(),
		"frequencies":    s.Frequencies.Len(),
		"relation_edges": s.Relations.EdgeCount(),
		"constraints":    s.Constraints.Len(),
	}
}

// Load reads every input named by files.
func Load(files Files, log *slog.Logger) (*Snapshot, error) {
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()

	store, skipped, err := metadata.LoadStore(metadata.Sources{
		Labels:       files.Path(files.Labels),
		Aliases:      files.Path(files.Aliases),
		Descriptions: files.Path(files.Descriptions),
		Datatypes:    files.Path(files.Datatypes),
		Remote:       files.Path(files.Metadata),
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn("properties without labels skipped", "count", skipped)
	}

	freq, err := metadata.LoadFrequencies(metadata.CountSources{
		Claims:     files.Path(files.ClaimsCounts),
		Qualifiers: files.Path(files.QualifiersCounts),
		Total:      files.Path(files.TotalCounts),
	})
	if err != nil {
		return nil, err
	}

	specs := files.Relations
	if len(specs) == 0 {
		specs = graph.DefaultRelationSpecs()
	}
	relations, err := LoadRelations(files.Path(files.ClaimsProperties), specs)
	if err != nil {
		return nil, err
	}

	table := constraints.NewTable(nil)
	if files.Constraints != "" {
		if table, err = constraints.Load(files.Path(files.Constraints)); err != nil {
			return nil, err
		}
	}

	splitter := textsplit.Default()
	if files.Words != "" {
		if splitter, err = textsplit.LoadWords(files.Path(files.Words)); err != nil {
			return nil, err
		}
	}

	snap := &Snapshot{
		Metadata:    store,
		Frequencies: freq,
		Relations:   relations,
		Constraints: table,
		Splitter:    splitter,
		LoadedAt:    time.Now(),
	}
	log.Info("dataset loaded",
		"properties", store.Len(),
		"relation_edges", relations.EdgeCount(),
		"constraints", table.Len(),
		"word_split", splitter.HasDictionary(),
		"duration", time.Since(start),
	)
	return snap, nil
}

var tripleColumns = []string{"node1", "label", "node2"}

// LoadRelations indexes the triples of the tracked relations. An empty
// path yields an empty index.
func LoadRelations(path string, specs []graph.RelationSpec) (*graph.RelationIndex, error) {
	idx := graph.NewRelationIndex(specs...)
	if path == "" {
		return idx, nil
	}

	err := tables.ReadFile(path, tripleColumns, func(r tables.Row) error {
		rel := graph.RelationName(r.Get("label"))
		if !idx.Tracks(rel) {
			return nil
		}
		idx.AddEdge(graph.RelationEdge{
			Relation: rel,
			Source:   graph.PropertyID(r.Get("node1")),
			Target:   graph.PropertyID(r.Get("node2")),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading relations: %w", err)
	}
	return idx, nil
}

// Empty returns a snapshot with no data, useful before the first load.
func Empty() *Snapshot {
	return &Snapshot{
		Metadata:    metadata.NewStore(nil),
		Frequencies: metadata.NewFrequencyTable(nil),
		Relations:   graph.NewRelationIndex(graph.DefaultRelationSpecs()...),
		Constraints: constraints.NewTable(nil),
		Splitter:    textsplit.Default(),
		LoadedAt:    time.Now(),
	}
}
