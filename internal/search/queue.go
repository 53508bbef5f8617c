package search

import "container/heap"

// queueEntry is a snapshot of a goal's scheduling key. Entries are
// immutable once pushed; a re-enqueued goal gets a fresh entry.
type queueEntry struct {
	goal         NodeID
	probability  float64
	lastExpanded int64 // iteration of the most recent expansion; zero = never
	added        int64 // iteration the goal entered the queue
}

// goalHeap orders entries best-first: higher probability wins; among equal
// probabilities the goal expanded longest ago (or never) goes first; the
// final tiebreak is insertion iteration. The second key guarantees weak
// fairness: equal-probability goals are each expanded infinitely often.
type goalHeap []queueEntry

func (h goalHeap) Len() int { return len(h) }

func (h goalHeap) Less(i, j int) bool {
	if h[i].probability != h[j].probability {
		return h[i].probability > h[j].probability
	}
	if h[i].lastExpanded != h[j].lastExpanded {
		return h[i].lastExpanded < h[j].lastExpanded
	}
	return h[i].added < h[j].added
}

func (h goalHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *goalHeap) Push(x any) { *h = append(*h, x.(queueEntry)) }

func (h *goalHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = queueEntry{}
	*h = old[:n-1]
	return e
}

// activeQueue is the priority queue of open goals.
type activeQueue struct {
	h goalHeap
}

func newActiveQueue() *activeQueue {
	q := &activeQueue{h: make(goalHeap, 0, 64)}
	heap.Init(&q.h)
	return q
}

func (q *activeQueue) push(e queueEntry) {
	heap.Push(&q.h, e)
}

// popMin removes and returns the highest-priority entry.
func (q *activeQueue) popMin() (queueEntry, bool) {
	if len(q.h) == 0 {
		return queueEntry{}, false
	}
	return heap.Pop(&q.h).(queueEntry), true
}

func (q *activeQueue) isEmpty() bool { return len(q.h) == 0 }

func (q *activeQueue) len() int { return len(q.h) }
