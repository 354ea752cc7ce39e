// Package pqueue implements a small binary-heap priority queue over
// container/heap, ordered by (priority rank, sequence).
//
// A priority queue this small is naturally expressed directly on top of
// container/heap rather than through a dependency, the same way in-flight
// and requeue message queues are implemented in other message-broker
// codebases.
package pqueue

import "container/heap"

// Item is one entry admitted into the queue.
type Item struct {
	ID       string
	Priority int // lower value dispatches first
	Sequence uint64
	index    int // heap index, maintained by container/heap
}

// innerHeap implements heap.Interface ordered by (Priority, Sequence).
type innerHeap []*Item

func (h innerHeap) Len() int { return len(h) }

func (h innerHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Sequence < h[j].Sequence
}

func (h innerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *innerHeap) Push(x any) {
	item := x.(*Item)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *innerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// PriorityQueue is a heap-ordered priority queue, not safe for concurrent
// use on its own — callers (pkg/scheduler) provide the locking.
type PriorityQueue struct {
	h innerHeap
}

// New returns an empty PriorityQueue with capacity pre-allocated.
func New(capacity int) *PriorityQueue {
	return &PriorityQueue{h: make(innerHeap, 0, capacity)}
}

// Push admits item into the queue.
func (pq *PriorityQueue) Push(item *Item) {
	heap.Push(&pq.h, item)
}

// Pop removes and returns the minimum (priority, sequence) item.
// Returns nil if the queue is empty.
func (pq *PriorityQueue) Pop() *Item {
	if pq.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&pq.h).(*Item)
}

// Len returns the number of items currently queued.
func (pq *PriorityQueue) Len() int { return pq.h.Len() }

// Remove withdraws item from the queue in place (O(log n)) if it is still
// present. Safe to call with an item that was already popped or removed.
func (pq *PriorityQueue) Remove(item *Item) {
	if item == nil || item.index < 0 || item.index >= pq.h.Len() || pq.h[item.index] != item {
		return
	}
	heap.Remove(&pq.h, item.index)
}

// Peek returns the minimum item without removing it, or nil if empty.
func (pq *PriorityQueue) Peek() *Item {
	if pq.h.Len() == 0 {
		return nil
	}
	return pq.h[0]
}

// Items returns a snapshot of all queued items in heap order (the minimum
// first; the remainder is NOT guaranteed fully sorted — callers that need a
// total order should sort the snapshot themselves).
func (pq *PriorityQueue) Items() []*Item {
	out := make([]*Item, len(pq.h))
	copy(out, pq.h)
	return out
}
