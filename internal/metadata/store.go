// Package metadata provides the read-only property metadata and frequency
// lookups used for type filtering, ranking and response rendering.
package metadata

import (
	"github.com/Benny93/propfinder-go/internal/graph"
)

// PropertyRecord holds everything known about one property.
type PropertyRecord struct {
	ID          graph.PropertyID
	Labels      []string
	Aliases     []string
	Description string
	ValueType   ValueType
	PageRank    float64
	Statements  int64
}

// Store maps property identifiers to their records. It is immutable once
// constructed and safe for concurrent reads.
type Store struct {
	records map[graph.PropertyID]*PropertyRecord
}

// NewStore wraps the given records. The map must not be modified afterwards.
func NewStore(records map[graph.PropertyID]*PropertyRecord) *Store {
	if records == nil {
		records = make(map[graph.PropertyID]*PropertyRecord)
	}
	return &Store{records: records}
}

// Get returns the record for id. The second result is false on a miss.
func (s *Store) Get(id graph.PropertyID) (*PropertyRecord, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Exists reports whether id has a record.
func (s *Store) Exists(id graph.PropertyID) bool {
	_, ok := s.records[id]
	return ok
}

// HasType reports whether id exists and is declared with the given type.
func (s *Store) HasType(id graph.PropertyID, t ValueType) bool {
	rec, ok := s.records[id]
	return ok && rec.ValueType == t
}

// Names returns every label followed by every alias of id, or nil on a miss.
func (s *Store) Names(id graph.PropertyID) []string {
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(rec.Labels)+len(rec.Aliases))
	names = append(names, rec.Labels...)
	return append(names, rec.Aliases...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}
