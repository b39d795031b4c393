package ch

import "github.com/rhartert/yagh"

// NodePriorityQueue is the contraction driver's node ordering queue: an
// indexed min-heap keyed by contraction priority, with ties broken by
// ascending node id so that re-running preparation against the same graph
// always contracts nodes in the same order.
//
// Priorities are encoded into a single int64 key (priority*numNodes+node)
// so that yagh's indexed heap — which upserts by element id rather than by
// an (old,new) pair — gives us decrease/increase-key updates without
// tracking the previous priority ourselves.
type NodePriorityQueue struct {
	heap *yagh.IntMap[int64]
	n    int64
}

// NewNodePriorityQueue builds an empty queue sized for numNodes distinct
// node ids.
func NewNodePriorityQueue(numNodes uint32) *NodePriorityQueue {
	return &NodePriorityQueue{
		heap: yagh.New[int64](int(numNodes)),
		n:    int64(numNodes),
	}
}

func (q *NodePriorityQueue) key(node uint32, priority int) int64 {
	return int64(priority)*q.n + int64(node)
}

// Insert adds node with the given priority, or repositions it if already
// present.
func (q *NodePriorityQueue) Insert(node uint32, priority int) {
	q.heap.Put(int(node), q.key(node, priority))
}

// Update repositions node to reflect a new priority. The previous priority
// is accepted to mirror the contraction driver's bookkeeping but is not
// needed to locate the entry — yagh's heap is indexed by element id.
func (q *NodePriorityQueue) Update(node uint32, _ int, newPriority int) {
	q.heap.Put(int(node), q.key(node, newPriority))
}

// IsEmpty reports whether the queue has no entries left.
func (q *NodePriorityQueue) IsEmpty() bool { return q.heap.Size() == 0 }

// Size returns the number of entries currently queued.
func (q *NodePriorityQueue) Size() int { return q.heap.Size() }

// PollMinKey removes and returns the node with the lowest priority,
// breaking ties by lowest node id.
func (q *NodePriorityQueue) PollMinKey() uint32 {
	e := q.heap.Pop()
	return uint32(e.Elem)
}

// PeekMinPriority returns the lowest priority currently queued without
// removing its entry. Callers must not call this on an empty queue.
func (q *NodePriorityQueue) PeekMinPriority() int {
	e := q.heap.Min()
	return int((e.Cost - int64(e.Elem)) / q.n)
}
