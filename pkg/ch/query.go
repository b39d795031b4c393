package ch

import (
	"context"
	"math"

	"github.com/nrstott/chcore/pkg/graph"
)

// noEdge marks a node with no predecessor edge in a search direction: either
// it hasn't been reached yet, or it's a seed root that the search started
// from rather than relaxed its way to.
const noEdge = ^uint32(0)

// Result is the outcome of a bidirectional query: the shortest weight found
// and the original-edge id sequence (with every shortcut unpacked) from
// source to target, in travel order.
type Result struct {
	Found  bool
	Weight float64
	Edges  []uint32
}

// BidirectionalSearch is the prepared-graph query executor: two simultaneous
// Dijkstra searches, forward from the source and backward from the target,
// each relaxing only edges toward a strictly higher contraction level so
// that both meet somewhere near the top of the hierarchy. Its three
// exported hooks — EdgeFilter, Finished and InvertWeight — are the override
// points a caller can replace to adapt the executor to a different edge
// filter, termination rule, or weight representation without touching the
// search loop itself.
type BidirectionalSearch struct {
	g Graph

	distFwd, distBwd         []float64
	predEdgeFwd, predEdgeBwd []uint32
	settledFwd, settledBwd   []bool
	touched                  []uint32

	fwdHeap, bwdHeap witnessHeap
	lastStepped      uint32

	// EdgeFilter decides whether an edge may be relaxed when standing at a
	// node with level curLevel, searching in the given direction. The
	// default only admits edges toward a strictly higher level — the
	// defining restriction of a CH upward query.
	EdgeFilter func(e graph.EdgeRef, curLevel uint32, forward bool) bool

	// Finished reports whether the search can stop early given the current
	// best known meeting weight and each direction's open frontier minimum.
	// The default is the standard CH rule: stop once both frontiers'
	// minimums exceed the best meeting weight found so far.
	Finished func(best, fwdMin, bwdMin float64) bool

	// InvertWeight maps a stored edge weight back to the caller's distance
	// unit before it's reported in a Result. The default is the identity —
	// overridden only when the graph's weights are some transform of the
	// quantity the caller wants reported (e.g. a landmark-shifted weight).
	InvertWeight func(w float64) float64
}

// NewBidirectionalSearch builds a query executor with default hooks, with
// scratch state sized for g's node count.
func NewBidirectionalSearch(g Graph) *BidirectionalSearch {
	n := g.NumNodes()
	b := &BidirectionalSearch{
		g:           g,
		distFwd:     make([]float64, n),
		distBwd:     make([]float64, n),
		predEdgeFwd: make([]uint32, n),
		predEdgeBwd: make([]uint32, n),
		settledFwd:  make([]bool, n),
		settledBwd:  make([]bool, n),
	}
	for i := range b.distFwd {
		b.distFwd[i] = math.Inf(1)
		b.distBwd[i] = math.Inf(1)
		b.predEdgeFwd[i] = noEdge
		b.predEdgeBwd[i] = noEdge
	}
	b.EdgeFilter = func(e graph.EdgeRef, curLevel uint32, forward bool) bool {
		return b.g.GetLevel(e.Other) > curLevel
	}
	b.Finished = func(best, fwdMin, bwdMin float64) bool {
		return fwdMin > best && bwdMin > best
	}
	b.InvertWeight = func(w float64) float64 { return w }
	return b
}

func (b *BidirectionalSearch) reset() {
	for _, n := range b.touched {
		b.distFwd[n] = math.Inf(1)
		b.distBwd[n] = math.Inf(1)
		b.settledFwd[n] = false
		b.settledBwd[n] = false
		b.predEdgeFwd[n] = noEdge
		b.predEdgeBwd[n] = noEdge
	}
	b.touched = b.touched[:0]
	b.fwdHeap.Reset()
	b.bwdHeap.Reset()
}

func (b *BidirectionalSearch) touch(node uint32) {
	if math.IsInf(b.distFwd[node], 1) && math.IsInf(b.distBwd[node], 1) {
		b.touched = append(b.touched, node)
	}
}

// Query runs the bidirectional search from source to target and returns the
// shortest weight and unpacked original-edge path, or Found=false if target
// is unreachable from source.
func (b *BidirectionalSearch) Query(source, target uint32) Result {
	b.Reset()
	b.SeedForward(source, 0)
	b.SeedBackward(target, 0)
	return b.Run()
}

// Reset clears all per-query state, readying the search for a fresh Query,
// or a fresh SeedForward/SeedBackward/Run sequence.
func (b *BidirectionalSearch) Reset() { b.reset() }

// SeedForward adds node to the forward frontier at the given starting
// distance. Calling it more than once seeds multiple forward starts — used
// to begin a search from a point snapped partway along an edge, where both
// of the edge's endpoints are reachable at a different partial weight.
func (b *BidirectionalSearch) SeedForward(node uint32, dist float64) {
	if node >= uint32(len(b.distFwd)) {
		return // empty graph: nothing to seed, Run() reports no-path
	}
	b.touch(node)
	if dist < b.distFwd[node] {
		b.distFwd[node] = dist
		b.fwdHeap.Push(node, dist)
	}
}

// SeedBackward is SeedForward's backward-search counterpart.
func (b *BidirectionalSearch) SeedBackward(node uint32, dist float64) {
	if node >= uint32(len(b.distBwd)) {
		return // empty graph: nothing to seed, Run() reports no-path
	}
	b.touch(node)
	if dist < b.distBwd[node] {
		b.distBwd[node] = dist
		b.bwdHeap.Push(node, dist)
	}
}

// Run drains whatever forward/backward frontiers SeedForward/SeedBackward
// have populated and returns the shortest meeting weight and unpacked path.
func (b *BidirectionalSearch) Run() Result {
	return b.RunContext(context.Background())
}

// RunContext is Run with periodic cancellation checks, for query-time use
// where a caller-imposed deadline should cut a pathological search short.
func (b *BidirectionalSearch) RunContext(ctx context.Context) Result {
	best := math.Inf(1)
	meet := uint32(0)
	found := false

	for steps := 0; ; steps++ {
		if steps%256 == 0 && ctx.Err() != nil {
			return Result{Found: false}
		}

		fwdMin, bwdMin := math.Inf(1), math.Inf(1)
		if b.fwdHeap.Len() > 0 {
			fwdMin = b.fwdHeap.items[0].dist
		}
		if b.bwdHeap.Len() > 0 {
			bwdMin = b.bwdHeap.items[0].dist
		}
		if (b.fwdHeap.Len() == 0 && b.bwdHeap.Len() == 0) || b.Finished(best, fwdMin, bwdMin) {
			break
		}

		if b.bwdHeap.Len() == 0 || (b.fwdHeap.Len() > 0 && fwdMin <= bwdMin) {
			if meetW, ok := b.stepForward(); ok && meetW < best {
				best, meet, found = meetW, b.lastStepped, true
			}
		} else {
			if meetW, ok := b.stepBackward(); ok && meetW < best {
				best, meet, found = meetW, b.lastStepped, true
			}
		}
	}

	if !found {
		return Result{Found: false}
	}

	edges := b.reconstruct(meet)
	return Result{Found: true, Weight: b.InvertWeight(best), Edges: edges}
}

func (b *BidirectionalSearch) stepForward() (meetWeight float64, metBackward bool) {
	cur := b.fwdHeap.Pop()
	if cur.dist > b.distFwd[cur.node] {
		return 0, false
	}
	b.settledFwd[cur.node] = true
	b.lastStepped = cur.node

	level := b.g.GetLevel(cur.node)
	for _, e := range b.g.GetOutgoing(cur.node) {
		if !b.EdgeFilter(e, level, true) {
			continue
		}
		nd := cur.dist + e.Weight
		if nd < b.distFwd[e.Other] {
			b.touch(e.Other)
			b.distFwd[e.Other] = nd
			b.predEdgeFwd[e.Other] = e.EdgeID
			b.fwdHeap.Push(e.Other, nd)
		}
	}

	if b.settledBwd[cur.node] {
		return cur.dist + b.distBwd[cur.node], true
	}
	return 0, false
}

func (b *BidirectionalSearch) stepBackward() (meetWeight float64, metForward bool) {
	cur := b.bwdHeap.Pop()
	if cur.dist > b.distBwd[cur.node] {
		return 0, false
	}
	b.settledBwd[cur.node] = true
	b.lastStepped = cur.node

	level := b.g.GetLevel(cur.node)
	for _, e := range b.g.GetIncoming(cur.node) {
		if !b.EdgeFilter(e, level, false) {
			continue
		}
		nd := cur.dist + e.Weight
		if nd < b.distBwd[e.Other] {
			b.touch(e.Other)
			b.distBwd[e.Other] = nd
			b.predEdgeBwd[e.Other] = e.EdgeID
			b.bwdHeap.Push(e.Other, nd)
		}
	}

	if b.settledFwd[cur.node] {
		return cur.dist + b.distFwd[cur.node], true
	}
	return 0, false
}

// predNode returns the endpoint of e that isn't n — the node a search
// relaxed from when it reached n along e, whichever of e's two endpoints
// that is.
func predNode(e graph.Edge, n uint32) uint32 {
	if e.To == n {
		return e.From
	}
	return e.To
}

// reconstruct walks the forward predecessor chain from source to meet and
// the backward predecessor chain from meet to target, then unpacks every
// shortcut edge id along the combined chain into the original edges it
// skips.
func (b *BidirectionalSearch) reconstruct(meet uint32) []uint32 {
	var fwdNodes, fwdEdges []uint32
	for n := meet; b.predEdgeFwd[n] != noEdge; {
		eid := b.predEdgeFwd[n]
		pred := predNode(b.g.Edge(eid), n)
		fwdEdges = append(fwdEdges, eid)
		fwdNodes = append(fwdNodes, pred) // pred is the from-node once reversed below
		n = pred
	}
	for i, j := 0, len(fwdNodes)-1; i < j; i, j = i+1, j-1 {
		fwdNodes[i], fwdNodes[j] = fwdNodes[j], fwdNodes[i]
		fwdEdges[i], fwdEdges[j] = fwdEdges[j], fwdEdges[i]
	}
	// fwdNodes/fwdEdges are now in source-to-meet order: fwdEdges[i] is
	// traveled starting at fwdNodes[i].

	var bwdNodes, bwdEdges []uint32
	for n := meet; b.predEdgeBwd[n] != noEdge; {
		eid := b.predEdgeBwd[n]
		pred := predNode(b.g.Edge(eid), n)
		bwdEdges = append(bwdEdges, eid)
		bwdNodes = append(bwdNodes, n) // n is the from-node in meet-to-target order
		n = pred
	}
	// bwdNodes/bwdEdges are already in meet-to-target order, no reversal needed.

	var out []uint32
	for i, eid := range fwdEdges {
		out = append(out, unpackEdge(b.g, eid, fwdNodes[i])...)
	}
	for i, eid := range bwdEdges {
		out = append(out, unpackEdge(b.g, eid, bwdNodes[i])...)
	}
	return out
}

// unpackEdge expands a possibly-shortcut edge, traveled starting at node
// from, into the sequence of original edge ids it represents, in travel
// order. The middle node of a two-hop shortcut is recovered from its
// skipped edge's endpoint that isn't the shortcut's canonical From; the
// untraveled half is then looked up fresh by endpoint and weight, which
// lets one stored Skipped id serve unpacking in either travel direction.
func unpackEdge(g Graph, edgeID, from uint32) []uint32 {
	e := g.Edge(edgeID)
	if !e.IsShortcut() {
		return []uint32{edgeID}
	}

	skip1 := g.Edge(e.Skipped)
	// Skipped is incident to e.From, but a Bidirectional skipped edge may be
	// stored in the opposite orientation; the middle is its other endpoint.
	middle := skip1.To
	if middle == e.From {
		middle = skip1.From
	}

	if from == e.From {
		half2 := g.FindEdgeByWeight(middle, e.To, e.Weight-skip1.Weight)
		out := unpackEdge(g, e.Skipped, e.From)
		return append(out, unpackEdge(g, half2, middle)...)
	}

	half1 := g.FindEdgeByWeight(e.To, middle, e.Weight-skip1.Weight)
	half2 := g.FindEdgeByWeight(middle, e.From, skip1.Weight)
	out := unpackEdge(g, half1, e.To)
	return append(out, unpackEdge(g, half2, middle)...)
}
