package ch

// Sigma is the original-edge counter: sigma(e) is the number of original
// (non-shortcut) edges a shortcut e stands in for. Every edge starts at 1;
// whenever a shortcut is created skipping edges e1 and e2, its sigma is
// sigma(e1)+sigma(e2), so sigma grows additively as contraction nests
// shortcuts inside shortcuts.
type Sigma struct {
	counts []int
}

// NewSigma builds a counter seeded with sigma=1 for every edge already
// present in g, indexed by edge id.
func NewSigma(g Graph) *Sigma {
	edges := g.AllEdges()
	s := &Sigma{counts: make([]int, len(edges))}
	for i := range s.counts {
		s.counts[i] = 1
	}
	return s
}

// Get returns sigma(e). Newly created edge ids not yet recorded via Set
// default to 0, which the caller is expected to overwrite before relying on
// the value.
func (s *Sigma) Get(edgeID uint32) int {
	if int(edgeID) < len(s.counts) {
		return s.counts[edgeID]
	}
	return 0
}

// Set records sigma(e) = n, growing the backing table if edgeID is new.
func (s *Sigma) Set(edgeID uint32, n int) {
	if int(edgeID) >= len(s.counts) {
		grown := make([]int, edgeID+1)
		copy(grown, s.counts)
		s.counts = grown
	}
	s.counts[edgeID] = n
}

// ofSkipped sums sigma over the original edges a shortcut record names.
func (s *Sigma) ofSkipped(skipped1, skipped2 uint32) int {
	return s.Get(skipped1) + s.Get(skipped2)
}
