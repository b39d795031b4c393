package ch

import "math"

// witnessHeapItem is an entry in the witness search min-heap.
type witnessHeapItem struct {
	node uint32
	dist float64
}

// witnessHeap is a concrete-typed binary min-heap, avoiding the interface
// boxing container/heap would impose on the search's innermost loop.
type witnessHeap struct {
	items []witnessHeapItem
}

func (h *witnessHeap) Len() int { return len(h.items) }

func (h *witnessHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, witnessHeapItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *witnessHeap) Pop() witnessHeapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

// siftUp uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *witnessHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.dist >= h.items[parent].dist {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

// siftDown uses hole-sift: saves the floating item and does 1 assignment per
// level instead of 3 (swap).
func (h *witnessHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].dist < h.items[child].dist {
			child = right
		}
		if item.dist <= h.items[child].dist {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

func (h *witnessHeap) Reset() {
	h.items = h.items[:0]
}

// WitnessSearch is the reusable witness-search engine: a single-source,
// many-target Dijkstra that never relaxes through a given avoid node, never
// relaxes into an already-contracted node, and stops once every goal has
// settled or the open frontier's minimum exceeds a weight limit — whichever
// comes first. One instance is allocated per preparation run and reset
// between calls so no per-call heap allocation is needed.
type WitnessSearch struct {
	g Graph

	dist     []float64
	pred     []uint32
	predEdge []uint32
	settled  []bool
	touched  []uint32

	wanted   []bool
	wantList []uint32

	heap witnessHeap
}

// NewWitnessSearch allocates search scratch state sized for g's node count.
func NewWitnessSearch(g Graph) *WitnessSearch {
	n := g.NumNodes()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	return &WitnessSearch{
		g:        g,
		dist:     dist,
		pred:     make([]uint32, n),
		predEdge: make([]uint32, n),
		settled:  make([]bool, n),
		wanted:   make([]bool, n),
		heap:     witnessHeap{items: make([]witnessHeapItem, 0, 64)},
	}
}

func (w *WitnessSearch) reset() {
	for _, n := range w.touched {
		w.dist[n] = math.Inf(1)
		w.settled[n] = false
	}
	w.touched = w.touched[:0]
	for _, n := range w.wantList {
		w.wanted[n] = false
	}
	w.wantList = w.wantList[:0]
	w.heap.Reset()
}

// Run searches from source, refusing to relax through avoid or into any
// node whose level is already assigned (contracted), bounding every
// explored distance by limit, and stopping as soon as every node in goals
// has settled or the open frontier's minimum weight exceeds limit.
//
// Dist, Settled and Path query the outcome after Run returns; they are
// invalid until the next call to Run.
func (w *WitnessSearch) Run(source, avoid uint32, limit float64, goals []uint32) {
	w.reset()

	for _, goal := range goals {
		if !w.wanted[goal] {
			w.wanted[goal] = true
			w.wantList = append(w.wantList, goal)
		}
	}
	remaining := len(w.wantList)

	w.dist[source] = 0
	w.touched = append(w.touched, source)
	w.heap.Push(source, 0)

	if w.wanted[source] {
		w.settled[source] = true
		remaining--
	}
	if remaining == 0 {
		return
	}

	for w.heap.Len() > 0 {
		if w.heap.items[0].dist > limit {
			return
		}

		cur := w.heap.Pop()
		if cur.dist > w.dist[cur.node] {
			continue // stale entry, a shorter one already settled this node
		}
		if w.settled[cur.node] {
			continue
		}
		w.settled[cur.node] = true
		if w.wanted[cur.node] {
			remaining--
			if remaining == 0 {
				return
			}
		}

		for _, e := range w.g.GetOutgoing(cur.node) {
			if e.Other == avoid {
				continue
			}
			if w.g.GetLevel(e.Other) != 0 {
				continue // already contracted, not part of the remaining graph
			}
			nd := cur.dist + e.Weight
			if nd > limit {
				continue
			}
			if nd < w.dist[e.Other] {
				if math.IsInf(w.dist[e.Other], 1) {
					w.touched = append(w.touched, e.Other)
				}
				w.dist[e.Other] = nd
				w.pred[e.Other] = cur.node
				w.predEdge[e.Other] = e.EdgeID
				w.heap.Push(e.Other, nd)
			}
		}
	}
}

// Dist returns the shortest weight found to node, or +Inf if node was never
// reached within the limit passed to Run.
func (w *WitnessSearch) Dist(node uint32) float64 { return w.dist[node] }

// Settled reports whether node was settled (popped as a permanent minimum)
// during the last Run.
func (w *WitnessSearch) Settled(node uint32) bool { return w.settled[node] }

// Path reconstructs the edge-id sequence of the shortest path found to a
// settled node, in source-to-node order. Exposed for callers that need to
// materialize the avoiding path a witness search proved exists, not just
// its weight — the synthesiser itself only ever needs Dist.
func (w *WitnessSearch) Path(node uint32) []uint32 {
	if !w.settled[node] {
		return nil
	}
	var edges []uint32
	for w.dist[node] != 0 {
		edges = append(edges, w.predEdge[node])
		node = w.pred[node]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges
}
