package graph

// ToLevelGraph converts the immutable CSR base graph into a mutable
// LevelGraph ready for contraction. Edge weights are carried over verbatim —
// CSR edge weight is already the travel weight the core additively relaxes
// over (see the type docs on Graph and LevelGraph).
func (g *Graph) ToLevelGraph() *LevelGraph {
	lg := NewLevelGraph(g.NumNodes)
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			lg.AddEdge(u, g.Head[e], float64(g.Weight[e]), Forward)
		}
	}
	return lg
}
