package ch

import "testing"

func TestNodePriorityQueuePollsInPriorityOrder(t *testing.T) {
	q := NewNodePriorityQueue(5)
	q.Insert(0, 10)
	q.Insert(1, -3)
	q.Insert(2, 7)
	q.Insert(3, -3)
	q.Insert(4, 0)

	// Node 1 and 3 tie at priority -3; ties break toward the lower node id.
	want := []uint32{1, 3, 4, 2, 0}
	for i, w := range want {
		if q.IsEmpty() {
			t.Fatalf("queue emptied early at step %d", i)
		}
		got := q.PollMinKey()
		if got != w {
			t.Errorf("step %d: got node %d, want %d", i, got, w)
		}
	}
	if !q.IsEmpty() {
		t.Errorf("queue not empty after draining all entries")
	}
}

func TestNodePriorityQueueUpdateRepositions(t *testing.T) {
	q := NewNodePriorityQueue(3)
	q.Insert(0, 5)
	q.Insert(1, 1)
	q.Insert(2, 10)

	q.Update(0, 5, -100)

	if got := q.PollMinKey(); got != 0 {
		t.Errorf("after lowering node 0's priority, got %d first, want 0", got)
	}
}

func TestNodePriorityQueuePeekMinPriorityDoesNotRemove(t *testing.T) {
	q := NewNodePriorityQueue(2)
	q.Insert(0, 4)
	q.Insert(1, 9)

	if p := q.PeekMinPriority(); p != 4 {
		t.Errorf("PeekMinPriority() = %d, want 4", p)
	}
	if q.Size() != 2 {
		t.Errorf("Size() after peek = %d, want 2", q.Size())
	}
	if got := q.PollMinKey(); got != 0 {
		t.Errorf("PollMinKey() after peek = %d, want 0", got)
	}
}
