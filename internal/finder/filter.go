package finder

import (
	"github.com/Benny93/propfinder-go/internal/constraints"
	"github.com/Benny93/propfinder-go/internal/graph"
)

// FilterParams selects which constraint stages apply.
type FilterParams struct {
	Scope graph.Scope

	// Constraint is the property whose qualifier constraints govern the
	// candidates, typically the main property of the statement being built.
	Constraint graph.PropertyID

	// OtherProperties are already used alongside the sought property.
	OtherProperties []graph.PropertyID
}

// ConstraintFilter applies rule-based admissibility checks to candidates.
type ConstraintFilter struct {
	table *constraints.Table
}

// NewConstraintFilter creates a filter over the constraint table.
func NewConstraintFilter(table *constraints.Table) *ConstraintFilter {
	return &ConstraintFilter{table: table}
}

type filterStage func(*CandidateSet, FilterParams) *CandidateSet

// Apply runs every stage in order: item applicability, scope, allowed
// qualifiers, required qualifiers, conflicts. Each stage returns a new set
// that is never larger than its input; the input set is not modified.
func (f *ConstraintFilter) Apply(set *CandidateSet, params FilterParams) *CandidateSet {
	stages := []filterStage{
		f.byItem,
		f.byScope,
		f.byAllowedQualifiers,
		f.byRequiredQualifiers,
		f.byConflicts,
	}
	for _, stage := range stages {
		set = stage(set, params)
	}
	return set
}

func (f *ConstraintFilter) byItem(set *CandidateSet, _ FilterParams) *CandidateSet {
	return set.Transform(func(id graph.PropertyID, tier graph.Tier) (graph.Tier, bool) {
		rec, ok := f.table.Get(id)
		return tier, !ok || !rec.InapplicableAsItem
	})
}

// byScope drops candidates whose manually curated scope excludes the
// requested use and demotes the rest to Tier4.
func (f *ConstraintFilter) byScope(set *CandidateSet, params FilterParams) *CandidateSet {
	tag, ok := constraints.TagFor(params.Scope)
	if !ok {
		return set
	}
	return set.Transform(func(id graph.PropertyID, tier graph.Tier) (graph.Tier, bool) {
		rec, ok := f.table.Get(id)
		if !ok || !rec.DeclaresScope() || rec.AllowsScope(tag) {
			return tier, true
		}
		if rec.ScopeIsManualOverride {
			return tier, false
		}
		return graph.Tier4, true
	})
}

func (f *ConstraintFilter) byAllowedQualifiers(set *CandidateSet, params FilterParams) *CandidateSet {
	rec, ok := f.governing(params)
	if !ok || rec.AllowedQualifiers == nil {
		return set
	}
	return set.Transform(func(id graph.PropertyID, tier graph.Tier) (graph.Tier, bool) {
		return tier, rec.AllowedQualifiers.Has(id)
	})
}

func (f *ConstraintFilter) byRequiredQualifiers(set *CandidateSet, params FilterParams) *CandidateSet {
	rec, ok := f.governing(params)
	if !ok || rec.RequiredQualifiers == nil {
		return set
	}
	return set.Transform(func(id graph.PropertyID, tier graph.Tier) (graph.Tier, bool) {
		if rec.RequiredQualifiers.Has(id) {
			return graph.Tier0, true
		}
		return tier, true
	})
}

func (f *ConstraintFilter) byConflicts(set *CandidateSet, params FilterParams) *CandidateSet {
	if len(params.OtherProperties) == 0 {
		return set
	}
	disallowed := make(constraints.IDSet)
	for _, other := range params.OtherProperties {
		if rec, ok := f.table.Get(other); ok {
			for id := range rec.Conflicts {
				disallowed[id] = struct{}{}
			}
		}
	}
	if len(disallowed) == 0 {
		return set
	}
	return set.Transform(func(id graph.PropertyID, tier graph.Tier) (graph.Tier, bool) {
		return tier, !disallowed.Has(id)
	})
}

func (f *ConstraintFilter) governing(params FilterParams) (*constraints.Record, bool) {
	if params.Constraint == "" {
		return nil, false
	}
	return f.table.Get(params.Constraint)
}
