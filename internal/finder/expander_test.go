package finder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
	"github.com/Benny93/propfinder-go/internal/textsplit"
)

func TestExpander_ExactHitStops(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(map[string][]graph.PropertyID{
		"birth date": {"P2", "P1", "P2"},
	})
	e := NewExpander(nil, DefaultExpandOptions(), discardLogger())

	ids := e.Expand(context.Background(), "birth date", s.query)

	assert.Equal(t, []graph.PropertyID{"P2", "P1"}, ids)
	assert.Equal(t, []string{"birth date"}, s.calls())
}

func TestExpander_SplitStep(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(map[string][]graph.PropertyID{
		"date of birth": {"P1"},
	})
	splitter := textsplit.New([]string{"of", "date", "birth"})
	e := NewExpander(splitter, DefaultExpandOptions(), discardLogger())

	ids := e.Expand(context.Background(), "dateofbirth", s.query)

	assert.Equal(t, []graph.PropertyID{"P1"}, ids)
	assert.Equal(t, []string{"dateofbirth", "date of birth"}, s.calls())
}

func TestExpander_DefaultWordList(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(map[string][]graph.PropertyID{
		"birth date": {"P569"},
	})
	e := NewExpander(textsplit.Default(), DefaultExpandOptions(), discardLogger())

	ids := e.Expand(context.Background(), "birthdate", s.query)

	assert.Equal(t, []graph.PropertyID{"P569"}, ids)
	assert.Equal(t, []string{"birthdate", "birth date"}, s.calls())
}

func TestExpander_FragmentsAreTruncated(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(nil)
	e := NewExpander(nil, ExpandOptions{SplitWords: true}, discardLogger())

	e.Expand(context.Background(), "internationalization_code", s.query)

	assert.Equal(t, []string{"internationalization_code", "internatio code"}, s.calls())
}

func TestExpander_PartialQueries(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(map[string][]graph.PropertyID{
		"country":   {"P17"},
		"citizen":   {},
		"countryof": {"P495"},
		"ofcitizen": {"P27", "P17"},
	})
	e := NewExpander(nil, DefaultExpandOptions(), discardLogger())

	ids := e.Expand(context.Background(), "country_of_citizen", s.query)

	assert.Equal(t, []string{
		"country_of_citizen",
		"country of citizen",
		"country",
		"citizen",
		"countryof",
		"ofcitizen",
	}, s.calls())
	assert.Equal(t, []graph.PropertyID{"P17", "P495", "P27"}, ids)
}

func TestExpander_PartialQueriesTwoFragments(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(nil)
	e := NewExpander(nil, DefaultExpandOptions(), discardLogger())

	ids := e.Expand(context.Background(), "birthDate", s.query)

	assert.Empty(t, ids)
	assert.Equal(t, []string{"birthDate", "birth Date", "birth", "Date"}, s.calls())
}

func TestExpander_PartialWithoutSplit(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(map[string][]graph.PropertyID{"birth": {"P3"}})
	e := NewExpander(nil, ExpandOptions{PartialQueries: true}, discardLogger())

	ids := e.Expand(context.Background(), "birth_date", s.query)

	assert.Equal(t, []graph.PropertyID{"P3"}, ids)
	assert.Equal(t, []string{"birth_date", "birth", "date"}, s.calls())
}

func TestExpander_LadderDisabled(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(nil)
	e := NewExpander(nil, ExpandOptions{}, discardLogger())

	assert.Empty(t, e.Expand(context.Background(), "birth date", s.query))
	assert.Equal(t, []string{"birth date"}, s.calls())
}

func TestExpander_TransportFailureIsEmptyStep(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(map[string][]graph.PropertyID{
		"birth date": {"P2"},
		"birth":      {"P3"},
	})
	s.errs["birth_date"] = errTransport
	s.errs["birth date"] = errTransport
	e := NewExpander(nil, DefaultExpandOptions(), discardLogger())

	ids := e.Expand(context.Background(), "birth_date", s.query)

	assert.Equal(t, []graph.PropertyID{"P3"}, ids)
}

func TestExpander_EmptyEverywhere(t *testing.T) {
	t.Parallel()

	s := newFakeSearcher(nil)
	e := NewExpander(nil, DefaultExpandOptions(), discardLogger())

	assert.Empty(t, e.Expand(context.Background(), "nothing matches here", s.query))
}

func TestExpander_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newFakeSearcher(map[string][]graph.PropertyID{"x": {"P1"}})
	e := NewExpander(nil, DefaultExpandOptions(), discardLogger())

	assert.Empty(t, e.Expand(ctx, "x", s.query))
	assert.Empty(t, s.calls())
}

func TestPartialTerms(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "a"}, partialTerms([]string{"a"}))
	assert.Equal(t, []string{"a", "b"}, partialTerms([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "d", "ab", "cd"}, partialTerms([]string{"a", "b", "c", "d"}))
}

func TestFilterByType(t *testing.T) {
	t.Parallel()

	store := testSnapshot().Metadata
	ids := []graph.PropertyID{"P1", "P5", "P404", "P4"}

	assert.Equal(t, ids, FilterByType(store, ids, ""))
	assert.Equal(t, []graph.PropertyID{"P1", "P4"}, FilterByType(store, ids, metadata.TypeTime))
	assert.Empty(t, FilterByType(store, ids, metadata.TypeURL))
}
