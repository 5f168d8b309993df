package hnsw

import "container/heap"

// Candidate is a NodeId paired with its distance to the active query,
// the unit the beam search frontier and results heaps operate on.
type Candidate struct {
	Node     uint32
	Distance float32
}

// minHeap orders candidates by ascending distance: the beam search
// frontier.
type minHeap struct {
	items []Candidate
}

func newMinHeap(capHint int) *minHeap {
	return &minHeap{items: make([]Candidate, 0, capHint)}
}

func (h *minHeap) Len() int            { return len(h.items) }
func (h *minHeap) Less(i, j int) bool  { return h.items[i].Distance < h.items[j].Distance }
func (h *minHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *minHeap) Push(x interface{})  { h.items = append(h.items, x.(Candidate)) }
func (h *minHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *minHeap) push(c Candidate) { heap.Push(h, c) }
func (h *minHeap) pop() (Candidate, bool) {
	if h.Len() == 0 {
		return Candidate{}, false
	}
	return heap.Pop(h).(Candidate), true
}

// maxHeap orders candidates by descending distance: the bounded results
// set, so the worst candidate is always at the top for
// eviction when the set exceeds ef.
type maxHeap struct {
	items []Candidate
}

func newMaxHeap(capHint int) *maxHeap {
	return &maxHeap{items: make([]Candidate, 0, capHint)}
}

func (h *maxHeap) Len() int           { return len(h.items) }
func (h *maxHeap) Less(i, j int) bool { return h.items[i].Distance > h.items[j].Distance }
func (h *maxHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *maxHeap) Push(x interface{}) { h.items = append(h.items, x.(Candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *maxHeap) push(c Candidate) { heap.Push(h, c) }
func (h *maxHeap) pop() (Candidate, bool) {
	if h.Len() == 0 {
		return Candidate{}, false
	}
	return heap.Pop(h).(Candidate), true
}

func (h *maxHeap) top() (Candidate, bool) {
	if h.Len() == 0 {
		return Candidate{}, false
	}
	return h.items[0], true
}

// sortedAscending returns the heap's contents ordered ascending by distance,
// consuming the heap.
func (h *maxHeap) sortedAscending() []Candidate {
	out := make([]Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		c, _ := h.pop()
		out[i] = c
	}
	return out
}
