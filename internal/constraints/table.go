// Package constraints provides the read-only property constraint table that
// drives candidate admissibility filtering.
package constraints

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/tables"
)

// ScopeTag marks an admissible use in a Record's scope set.
type ScopeTag string

const (
	// TagQualifier allows use as a qualifier.
	TagQualifier ScopeTag = "Q"
	// TagValue allows use as a main value.
	TagValue ScopeTag = "V"
)

// TagFor returns the tag a scope requires. ScopeBoth has no tag.
func TagFor(scope graph.Scope) (ScopeTag, bool) {
	switch scope {
	case graph.ScopeQualifier:
		return TagQualifier, true
	case graph.ScopeValue:
		return TagValue, true
	}
	return "", false
}

// IDSet is a set of property identifiers.
type IDSet map[graph.PropertyID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...graph.PropertyID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set contains nothing.
func (s IDSet) Has(id graph.PropertyID) bool {
	_, ok := s[id]
	return ok
}

// Record is the constraint information of one property. Nil sets mean the
// constraint is not declared, which is different from an empty declared set.
type Record struct {
	InapplicableAsItem    bool
	Scope                 map[ScopeTag]struct{}
	ScopeIsManualOverride bool
	AllowedQualifiers     IDSet
	RequiredQualifiers    IDSet
	Conflicts             IDSet
}

// DeclaresScope reports whether the record restricts usage scope.
func (r *Record) DeclaresScope() bool {
	return r.Scope != nil
}

// AllowsScope reports whether the declared scope contains tag.
func (r *Record) AllowsScope(tag ScopeTag) bool {
	_, ok := r.Scope[tag]
	return ok
}

// Table maps properties to their constraint records. Immutable once built.
type Table struct {
	records map[graph.PropertyID]*Record
}

// NewTable wraps the given records. The map must not be modified afterwards.
func NewTable(records map[graph.PropertyID]*Record) *Table {
	if records == nil {
		records = make(map[graph.PropertyID]*Record)
	}
	return &Table{records: records}
}

// Get returns the record for id; false means the property is unconstrained.
func (t *Table) Get(id graph.PropertyID) (*Record, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Len returns the number of constrained properties.
func (t *Table) Len() int {
	return len(t.records)
}

// rawRecord mirrors the JSON layout. Flags are presence-based: any value
// under "noitem" or "scope_man" sets the flag.
type rawRecord struct {
	NoItem             json.RawMessage `json:"noitem"`
	Scope              json.RawMessage `json:"scope"`
	ScopeManual        json.RawMessage `json:"scope_man"`
	AllowedQualifiers  []string        `json:"allowed_qualifiers"`
	RequiredQualifiers []string        `json:"required_qualifiers"`
	Conflicts          []string        `json:"conflicts"`
}

// Load reads a constraint table from a JSON file (optionally gzipped).
func Load(path string) (*Table, error) {
	rc, err := tables.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading constraints: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var raw map[string]rawRecord
	if err := json.NewDecoder(rc).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding constraints %s: %w", path, err)
	}

	records := make(map[graph.PropertyID]*Record, len(raw))
	for id, r := range raw {
		rec, err := r.toRecord()
		if err != nil {
			return nil, fmt.Errorf("constraints for %s: %w", id, err)
		}
		records[graph.PropertyID(id)] = rec
	}
	return NewTable(records), nil
}

func (r rawRecord) toRecord() (*Record, error) {
	rec := &Record{
		InapplicableAsItem:    r.NoItem != nil,
		ScopeIsManualOverride: r.ScopeManual != nil,
	}

	if r.Scope != nil {
		tags, err := parseScope(r.Scope)
		if err != nil {
			return nil, err
		}
		rec.Scope = tags
	}
	if r.AllowedQualifiers != nil {
		rec.AllowedQualifiers = NewIDSet(graph.IDs(r.AllowedQualifiers...)...)
	}
	if r.RequiredQualifiers != nil {
		rec.RequiredQualifiers = NewIDSet(graph.IDs(r.RequiredQualifiers...)...)
	}
	if r.Conflicts != nil {
		rec.Conflicts = NewIDSet(graph.IDs(r.Conflicts...)...)
	}
	return rec, nil
}

// parseScope accepts either a list of tags (["Q", "V"]) or a string of tag
// letters ("QV").
func parseScope(raw json.RawMessage) (map[ScopeTag]struct{}, error) {
	tags := make(map[ScopeTag]struct{})

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, t := range list {
			tags[ScopeTag(strings.TrimSpace(t))] = struct{}{}
		}
		return tags, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("scope must be a list or string: %w", err)
	}
	for _, c := range s {
		tags[ScopeTag(string(c))] = struct{}{}
	}
	return tags, nil
}
