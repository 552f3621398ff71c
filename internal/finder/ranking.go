package finder

import (
	"math"
	"slices"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
)

// Ranked is a scored candidate.
type Ranked struct {
	ID    graph.PropertyID
	Score float64
}

// Ranker scores candidates by name similarity weighted by usage frequency.
type Ranker struct {
	store *metadata.Store
	freq  *metadata.FrequencyTable
}

// NewRanker creates a ranker over the metadata and frequency stores.
func NewRanker(store *metadata.Store, freq *metadata.FrequencyTable) *Ranker {
	return &Ranker{store: store, freq: freq}
}

// Rank scores every id as similarity × ln(count+1) and orders them by
// descending score. Equal scores keep their input order.
func (r *Ranker) Rank(ids []graph.PropertyID, query string, scope graph.Scope) []Ranked {
	q := runeStrings(query)
	ranked := make([]Ranked, len(ids))
	for i, id := range ids {
		count := r.freq.Count(id, scope)
		ranked[i] = Ranked{
			ID:    id,
			Score: r.similarity(q, id) * math.Log(float64(count)+1),
		}
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return ranked
}

// similarity is the best character-level match ratio between the query and
// any label or alias of id. Unknown properties score zero.
func (r *Ranker) similarity(query []string, id graph.PropertyID) float64 {
	best := 0.0
	for _, name := range r.store.Names(id) {
		if ratio := Similarity(query, runeStrings(name)); ratio > best {
			best = ratio
		}
	}
	return best
}

// Similarity returns the sequence matcher ratio of two rune sequences:
// 2·M / (len(a)+len(b)) where M is the number of matched characters.
func Similarity(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
