package ch

// Priority weights for the contraction heuristic:
//
//	P(v) = edgeDiffWeight*edgeDifference(v) + origEdgeWeight*sigmaSum(v) + contractedNeighbours(v)
//
// edgeDifference rewards nodes whose removal shrinks the graph (few
// shortcuts needed relative to edges removed); sigmaSum penalizes
// contracting nodes that would stand in for a lot of original road, so that
// highway-like nodes get contracted late; contractedNeighbours smooths the
// order so that a node's neighbourhood doesn't get contracted all at once.
const (
	edgeDiffWeight = 10
	origEdgeWeight = 50
)

// PriorityCalc computes P(v) by running find_shortcuts(v) and counting,
// without mutating the graph or the sigma table.
type PriorityCalc struct {
	g   Graph
	syn *Synthesizer
}

// NewPriorityCalc builds a calculator sharing g and the synthesiser used to
// materialize shortcuts, so that the priority preview and the eventual
// contraction agree on exactly which shortcuts a node requires.
func NewPriorityCalc(g Graph, syn *Synthesizer) *PriorityCalc {
	return &PriorityCalc{g: g, syn: syn}
}

// Priority computes P(v) as of the graph's current contraction state.
func (p *PriorityCalc) Priority(v uint32) int {
	shortcuts := p.syn.FindShortcuts(v)

	origEdgeSum := 0
	for _, c := range shortcuts {
		origEdgeSum += p.syn.sigma.ofSkipped(c.Skip, c.Skip2)
	}

	live := 0
	contracted := 0
	for _, e := range p.g.GetIncoming(v) {
		if p.g.GetLevel(e.Other) == 0 {
			live++
		} else {
			contracted++
		}
	}
	for _, e := range p.g.GetOutgoing(v) {
		if p.g.GetLevel(e.Other) == 0 {
			live++
		} else {
			contracted++
		}
	}

	edgeDifference := len(shortcuts) - live

	return edgeDiffWeight*edgeDifference + origEdgeWeight*origEdgeSum + contracted
}
