package finder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/Benny93/propfinder-go/internal/constraints"
	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
	"github.com/Benny93/propfinder-go/internal/textsplit"
)

var errTransport = errors.New("connection refused")

// fakeSearcher answers searches from a fixed table and records every term.
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]graph.PropertyID
	errs     map[string]error
	probeErr error
	terms    []string
}

func newFakeSearcher(results map[string][]graph.PropertyID) *fakeSearcher {
	return &fakeSearcher{results: results, errs: map[string]error{}}
}

func (s *fakeSearcher) Search(_ context.Context, term string, _ int) ([]graph.PropertyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = append(s.terms, term)
	if err := s.errs[term]; err != nil {
		return nil, err
	}
	return s.results[term], nil
}

func (s *fakeSearcher) Probe(context.Context) error {
	return s.probeErr
}

func (s *fakeSearcher) query(ctx context.Context, term string) ([]graph.PropertyID, error) {
	return s.Search(ctx, term, DefaultQuerySize)
}

func (s *fakeSearcher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terms...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id graph.PropertyID, vt metadata.ValueType, names ...string) *metadata.PropertyRecord {
	return &metadata.PropertyRecord{
		ID:          id,
		Labels:      names[:1],
		Aliases:     names[1:],
		Description: "description of " + string(id),
		ValueType:   vt,
	}
}

// testSnapshot builds a small dataset:
//
//	P1 "date of birth" (time)        P1 -P1696-> P4, P1 -P1659-> P5
//	P2 "birth date" (time, noitem)   P3 -P1647-> P6
//	P3 "birthday" (time)
//	P4 "birth time" (time)
//	P5 "place of birth" (item)
//	P6 "year of birth" (quantity)
func testSnapshot() *dataset.Snapshot {
	store := metadata.NewStore(map[graph.PropertyID]*metadata.PropertyRecord{
		"P1": record("P1", metadata.TypeTime, "date of birth", "born on"),
		"P2": record("P2", metadata.TypeTime, "birth date"),
		"P3": record("P3", metadata.TypeTime, "birthday"),
		"P4": record("P4", metadata.TypeTime, "birth time"),
		"P5": record("P5", metadata.TypeItem, "place of birth"),
		"P6": record("P6", metadata.TypeQuantity, "year of birth"),
	})

	freq := metadata.NewFrequencyTable(map[graph.PropertyID]metadata.Counts{
		"P1": {MainValue: 1000, Qualifier: 10},
		"P2": {MainValue: 50},
		"P3": {MainValue: 200, Qualifier: 500},
		"P4": {MainValue: 30},
		"P5": {MainValue: 800},
		"P6": {Qualifier: 40},
	})

	relations := graph.NewRelationIndex(graph.DefaultRelationSpecs()...)
	relations.AddEdge(graph.RelationEdge{Relation: graph.RelInverse, Source: "P1", Target: "P4"})
	relations.AddEdge(graph.RelationEdge{Relation: graph.RelSeeAlso, Source: "P1", Target: "P5"})
	relations.AddEdge(graph.RelationEdge{Relation: graph.RelSubpropertyOf, Source: "P3", Target: "P6"})

	table := constraints.NewTable(map[graph.PropertyID]*constraints.Record{
		"P2": {InapplicableAsItem: true},
	})

	return &dataset.Snapshot{
		Metadata:    store,
		Frequencies: freq,
		Relations:   relations,
		Constraints: table,
		Splitter:    textsplit.New(nil),
	}
}
