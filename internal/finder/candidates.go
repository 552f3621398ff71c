package finder

import "github.com/Benny93/propfinder-go/internal/graph"

// CandidateSet assigns every candidate property exactly one tier.
//
// The set is a single id → tier map plus the insertion order, so a property
// can never appear in two tiers at once. Members are reported in insertion
// order within each tier.
type CandidateSet struct {
	tiers map[graph.PropertyID]graph.Tier
	order []graph.PropertyID
}

// NewCandidateSet creates an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{tiers: make(map[graph.PropertyID]graph.Tier)}
}

// Add places id in tier. The first placement wins: it returns false and
// leaves the set unchanged when id is already present.
func (c *CandidateSet) Add(id graph.PropertyID, tier graph.Tier) bool {
	if _, ok := c.tiers[id]; ok {
		return false
	}
	c.tiers[id] = tier
	c.order = append(c.order, id)
	return true
}

// Tier returns the tier of id.
func (c *CandidateSet) Tier(id graph.PropertyID) (graph.Tier, bool) {
	t, ok := c.tiers[id]
	return t, ok
}

// Has reports whether id is a candidate.
func (c *CandidateSet) Has(id graph.PropertyID) bool {
	_, ok := c.tiers[id]
	return ok
}

// Len returns the number of candidates across all tiers.
func (c *CandidateSet) Len() int {
	return len(c.tiers)
}

// IDs returns every candidate in insertion order.
func (c *CandidateSet) IDs() []graph.PropertyID {
	return append([]graph.PropertyID(nil), c.order...)
}

// Members returns the candidates of one tier in insertion order.
func (c *CandidateSet) Members(tier graph.Tier) []graph.PropertyID {
	var ids []graph.PropertyID
	for _, id := range c.order {
		if c.tiers[id] == tier {
			ids = append(ids, id)
		}
	}
	return ids
}

// TierSizes returns the number of candidates per tier.
func (c *CandidateSet) TierSizes() map[graph.Tier]int {
	sizes := make(map[graph.Tier]int, len(graph.Tiers))
	for _, t := range c.tiers {
		sizes[t]++
	}
	return sizes
}

// Transform builds a new set by passing every candidate through fn in
// insertion order. fn returns the candidate's new tier, or false to drop it.
// The receiver is not modified.
func (c *CandidateSet) Transform(fn func(id graph.PropertyID, tier graph.Tier) (graph.Tier, bool)) *CandidateSet {
	out := &CandidateSet{
		tiers: make(map[graph.PropertyID]graph.Tier, len(c.tiers)),
		order: make([]graph.PropertyID, 0, len(c.order)),
	}
	for _, id := range c.order {
		if tier, keep := fn(id, c.tiers[id]); keep {
			out.tiers[id] = tier
			out.order = append(out.order, id)
		}
	}
	return out
}
