package ingestor

import (
	"container/heap"

	"github.com/sayaproofs/saya/internal/types"
)

// completion is one worker's finished PIE, tagged with the height it was
// generated for so the reorder buffer can release them in order.
type completion struct {
	height uint64
	block  types.NewBlock
}

// minHeap orders completions by ascending height.
type minHeap []completion

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].height < h[j].height }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(completion)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// reorderBuffer holds out-of-order worker completions and releases them
// to the caller strictly in ascending height, starting at nextExpected.
// Workers may finish heights 11 and 12 before height 10; the buffer
// withholds them until 10 arrives.
type reorderBuffer struct {
	heap         minHeap
	nextExpected uint64
}

func newReorderBuffer(nextExpected uint64) *reorderBuffer {
	h := make(minHeap, 0)
	heap.Init(&h)
	return &reorderBuffer{heap: h, nextExpected: nextExpected}
}

// Add records a worker's completion. Ready returns the prefix of
// consecutive completions now releasable, in order, and advances
// nextExpected past them.
func (b *reorderBuffer) Add(c completion) []types.NewBlock {
	heap.Push(&b.heap, c)
	return b.drain()
}

func (b *reorderBuffer) drain() []types.NewBlock {
	var ready []types.NewBlock
	for b.heap.Len() > 0 && b.heap[0].height == b.nextExpected {
		c := heap.Pop(&b.heap).(completion)
		ready = append(ready, c.block)
		b.nextExpected++
	}
	return ready
}
