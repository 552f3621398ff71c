// Package finder resolves free-text labels into ranked schema properties.
//
// A search runs a fixed pipeline: the Expander queries the search backend
// through a fallback ladder, the Classifier spreads the matches over
// relation tiers, the ConstraintFilter removes or moves inadmissible
// candidates and the Ranker orders every tier. The tiers are then merged in
// priority order into a size-bounded result list.
package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metadata"
)

var (
	// ErrInvalidRequest marks a request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBackendUnavailable marks a failed liveness probe.
	ErrBackendUnavailable = errors.New("search backend unavailable")
)

const (
	// DefaultQuerySize is the number of hits requested per backend query.
	DefaultQuerySize = 500
	// DefaultResultSize is the number of results returned when unspecified.
	DefaultResultSize = 10
)

// Searcher is the remote search backend.
type Searcher interface {
	Search(ctx context.Context, term string, size int) ([]graph.PropertyID, error)
	Probe(ctx context.Context) error
}

// Config tunes the pipeline.
type Config struct {
	QuerySize int            `mapstructure:"query_size"`
	Expand    ExpandOptions  `mapstructure:"expand"`
	Relations RelationGroups `mapstructure:"relations"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		QuerySize: DefaultQuerySize,
		Expand:    DefaultExpandOptions(),
		Relations: DefaultRelationGroups(),
	}
}

// Params is one search request.
type Params struct {
	Label string

	// DataType is a value type name or alias; empty means any type.
	DataType string

	// Scope is "qualifier", "value" or "both"; empty means both.
	Scope string

	// Filter enables the constraint filter.
	Filter bool

	Constraint      string
	OtherProperties []string
	Size            int
	ExtraInfo       bool
}

// query is a validated Params.
type query struct {
	label     string
	valueType metadata.ValueType
	scope     graph.Scope
	filter    bool
	filterBy  FilterParams
	size      int
	extraInfo bool
}

// Result is one property in a search response.
type Result struct {
	QNode       graph.PropertyID `json:"qnode"`
	Description []string         `json:"description"`
	Tier        graph.Tier       `json:"-"`
	*Details
}

// Details is the extra information returned on request.
type Details struct {
	Label      []string           `json:"label"`
	Alias      []string           `json:"alias"`
	PageRank   float64            `json:"pagerank"`
	Statements int64              `json:"statements"`
	Score      float64            `json:"score"`
	DataType   metadata.ValueType `json:"data_type"`
}

// Finder runs searches against the current data snapshot.
type Finder struct {
	searcher Searcher
	snapshot atomic.Pointer[dataset.Snapshot]
	cfg      Config
	log      *slog.Logger
}

// New creates a finder serving snap.
func New(searcher Searcher, snap *dataset.Snapshot, cfg Config, log *slog.Logger) *Finder {
	if cfg.QuerySize <= 0 {
		cfg.QuerySize = DefaultQuerySize
	}
	if log == nil {
		log = slog.Default()
	}
	f := &Finder{searcher: searcher, cfg: cfg, log: log}
	f.snapshot.Store(snap)
	return f
}

// Snapshot returns the snapshot currently served.
func (f *Finder) Snapshot() *dataset.Snapshot {
	return f.snapshot.Load()
}

// Swap replaces the served snapshot and returns the previous one. Searches
// already running finish on the snapshot they started with.
func (f *Finder) Swap(snap *dataset.Snapshot) *dataset.Snapshot {
	return f.snapshot.Swap(snap)
}

// Ready probes the search backend.
func (f *Finder) Ready(ctx context.Context) error {
	if err := f.searcher.Probe(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// Find validates params, checks the backend is up and runs the pipeline.
// It fails only with ErrInvalidRequest or ErrBackendUnavailable; backend
// errors during expansion degrade to fewer results.
func (f *Finder) Find(ctx context.Context, params Params) ([]Result, error) {
	q, err := validate(params)
	if err != nil {
		return nil, err
	}
	if err := f.Ready(ctx); err != nil {
		return nil, err
	}

	snap := f.Snapshot()
	set := f.candidates(ctx, snap, q)
	return f.merge(snap, set, q), nil
}

// Candidates runs expansion, classification and filtering without ranking.
func (f *Finder) Candidates(ctx context.Context, params Params) (*CandidateSet, error) {
	q, err := validate(params)
	if err != nil {
		return nil, err
	}
	return f.candidates(ctx, f.Snapshot(), q), nil
}

func (f *Finder) candidates(ctx context.Context, snap *dataset.Snapshot, q query) *CandidateSet {
	search := func(ctx context.Context, term string) ([]graph.PropertyID, error) {
		return f.searcher.Search(ctx, term, f.cfg.QuerySize)
	}

	raw := NewExpander(snap.Splitter, f.cfg.Expand, f.log).Expand(ctx, q.label, search)
	seed := FilterByType(snap.Metadata, raw, q.valueType)

	set := NewClassifier(snap.Relations, snap.Metadata, f.cfg.Relations).Classify(seed, q.valueType)
	if q.filter {
		set = NewConstraintFilter(snap.Constraints).Apply(set, q.filterBy)
	}

	f.log.Debug("candidates",
		"label", q.label,
		"raw", len(raw),
		"seed", len(seed),
		"candidates", set.Len(),
	)
	return set
}

// merge ranks each tier and fills the result tier by tier until size.
func (f *Finder) merge(snap *dataset.Snapshot, set *CandidateSet, q query) []Result {
	ranker := NewRanker(snap.Metadata, snap.Frequencies)
	results := make([]Result, 0, min(q.size, set.Len()))

	for _, tier := range graph.Tiers {
		if len(results) >= q.size {
			break
		}
		for _, r := range ranker.Rank(set.Members(tier), q.label, q.scope) {
			results = append(results, describe(snap.Metadata, r, tier, q.extraInfo))
			if len(results) >= q.size {
				break
			}
		}
	}
	return results
}

// Info returns the full description of one property.
func (f *Finder) Info(id graph.PropertyID) (Result, bool) {
	store := f.Snapshot().Metadata
	if !store.Exists(id) {
		return Result{}, false
	}
	return describe(store, Ranked{ID: id}, graph.Tier1, true), true
}

func describe(store *metadata.Store, r Ranked, tier graph.Tier, extra bool) Result {
	res := Result{QNode: r.ID, Description: []string{}, Tier: tier}
	rec, ok := store.Get(r.ID)
	if ok && rec.Description != "" {
		res.Description = []string{rec.Description}
	}
	if !extra {
		return res
	}

	res.Details = &Details{Label: []string{}, Alias: []string{}, Score: r.Score}
	if ok {
		res.Label = append(res.Label, rec.Labels...)
		res.Alias = append(res.Alias, rec.Aliases...)
		res.PageRank = rec.PageRank
		res.Statements = rec.Statements
		res.DataType = rec.ValueType
	}
	return res
}

func validate(p Params) (query, error) {
	q := query{
		label:     strings.TrimSpace(p.Label),
		filter:    p.Filter,
		size:      p.Size,
		extraInfo: p.ExtraInfo,
	}
	if q.label == "" {
		return q, fmt.Errorf("%w: label is required", ErrInvalidRequest)
	}

	if p.DataType != "" {
		vt, ok := metadata.ResolveType(p.DataType)
		if !ok {
			return q, fmt.Errorf("%w: unsupported data_type %q", ErrInvalidRequest, p.DataType)
		}
		q.valueType = vt
	}

	scope, ok := graph.ParseScope(p.Scope)
	if !ok {
		return q, fmt.Errorf("%w: unsupported scope %q", ErrInvalidRequest, p.Scope)
	}
	q.scope = scope

	if q.size <= 0 {
		return q, fmt.Errorf("%w: size must be a positive integer", ErrInvalidRequest)
	}

	q.filterBy = FilterParams{
		Scope:           scope,
		Constraint:      graph.PropertyID(strings.TrimSpace(p.Constraint)),
		OtherProperties: graph.IDs(trimAll(p.OtherProperties)...),
	}
	return q, nil
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
