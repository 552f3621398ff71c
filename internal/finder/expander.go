package finder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
	"github.com/Benny93/propfinder-go/internal/textsplit"
)

// DefaultFragmentMaxLen is the rune limit applied to every split fragment.
const DefaultFragmentMaxLen = 10

// QueryFunc runs one search against the backend and returns the property
// identifiers it matched, in backend order.
type QueryFunc func(ctx context.Context, term string) ([]graph.PropertyID, error)

// ExpandOptions controls the fallback ladder.
type ExpandOptions struct {
	// SplitWords retries with the label split into word fragments.
	SplitWords bool `mapstructure:"split_words"`

	// PartialQueries retries with single fragments and fragment pairs.
	PartialQueries bool `mapstructure:"partial_queries"`

	// FragmentMaxLen truncates every fragment; zero means DefaultFragmentMaxLen.
	FragmentMaxLen int `mapstructure:"fragment_max_len"`
}

// DefaultExpandOptions enables the whole ladder.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{
		SplitWords:     true,
		PartialQueries: true,
		FragmentMaxLen: DefaultFragmentMaxLen,
	}
}

// Expander turns a label into raw candidate identifiers.
type Expander struct {
	splitter *textsplit.Splitter
	opts     ExpandOptions
	log      *slog.Logger
}

// NewExpander creates an expander. A nil splitter uses rule-based tokenizing.
func NewExpander(splitter *textsplit.Splitter, opts ExpandOptions, log *slog.Logger) *Expander {
	if opts.FragmentMaxLen <= 0 {
		opts.FragmentMaxLen = DefaultFragmentMaxLen
	}
	if log == nil {
		log = slog.Default()
	}
	return &Expander{splitter: splitter, opts: opts, log: log}
}

// Expand queries the exact label and, while nothing has been found, falls
// back to the split label and then to partial queries. The ladder stops at
// the first step that yields results. A failed query counts as empty.
//
// The result is deduplicated in first-seen order.
func (e *Expander) Expand(ctx context.Context, label string, search QueryFunc) []graph.PropertyID {
	found := newIDCollector()

	found.add(e.query(ctx, search, "exact", label)...)
	if found.len() > 0 || !e.opts.SplitWords && !e.opts.PartialQueries {
		return found.ids
	}

	fragments := e.splitter.Fragments(label, e.opts.FragmentMaxLen)
	if len(fragments) == 0 {
		return found.ids
	}

	if e.opts.SplitWords {
		found.add(e.query(ctx, search, "split", strings.Join(fragments, " "))...)
		if found.len() > 0 {
			return found.ids
		}
	}

	if e.opts.PartialQueries {
		for _, term := range partialTerms(fragments) {
			found.add(e.query(ctx, search, "partial", term)...)
		}
	}

	return found.ids
}

func (e *Expander) query(ctx context.Context, search QueryFunc, step, term string) []graph.PropertyID {
	if ctx.Err() != nil {
		return nil
	}
	ids, err := search(ctx, term)
	if err != nil {
		e.log.Warn("search step failed", "step", step, "term", term, "error", err)
		return nil
	}
	e.log.Debug("search step", "step", step, "term", term, "hits", len(ids))
	return ids
}

// partialTerms lists the first and last fragment and, with at least three
// fragments, the concatenated first pair and last pair.
func partialTerms(fragments []string) []string {
	n := len(fragments)
	terms := []string{fragments[0], fragments[n-1]}
	if n > 2 {
		terms = append(terms,
			fragments[0]+fragments[1],
			fragments[n-2]+fragments[n-1],
		)
	}
	return terms
}

// FilterByType keeps the ids that exist in store with value type vt.
// An empty vt keeps everything.
func FilterByType(store *metadata.Store, ids []graph.PropertyID, vt metadata.ValueType) []graph.PropertyID {
	if vt == "" {
		return ids
	}
	out := make([]graph.PropertyID, 0, len(ids))
	for _, id := range ids {
		if store.HasType(id, vt) {
			out = append(out, id)
		}
	}
	return out
}

type idCollector struct {
	seen map[graph.PropertyID]struct{}
	ids  []graph.PropertyID
}

func newIDCollector() *idCollector {
	return &idCollector{seen: make(map[graph.PropertyID]struct{})}
}

func (c *idCollector) add(ids ...graph.PropertyID) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := c.seen[id]; ok {
			continue
		}
		c.seen[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
}

func (c *idCollector) len() int {
	return len(c.ids)
}
