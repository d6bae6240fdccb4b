package mergetree

import (
	"container/heap"

	"github.com/ironsheep/image-mergetree/internal/rag"
)

// queueEntry is a scored edge. seq orders entries of equal score by
// insertion, which keeps the merge order deterministic.
type queueEntry struct {
	score float64
	edge  rag.EdgeID
	seq   uint64
}

// entryHeap implements container/heap.Interface as a min-heap by score.
type entryHeap []queueEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(queueEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeQueue hands out edges in ascending score order. It never removes or
// re-keys entries: an edge that went stale is dropped when it reaches the top,
// and a re-scored edge is simply pushed again.
type mergeQueue struct {
	entries entryHeap
	seq     uint64
	stale   int
}

func newMergeQueue(capacity int) *mergeQueue {
	return &mergeQueue{entries: make(entryHeap, 0, capacity)}
}

func (q *mergeQueue) push(edge rag.EdgeID, score float64) {
	heap.Push(&q.entries, queueEntry{score: score, edge: edge, seq: q.seq})
	q.seq++
}

// pop returns the lowest-scored entry accepted by valid, discarding every
// rejected entry on the way. ok is false once the queue is exhausted.
func (q *mergeQueue) pop(valid func(rag.EdgeID) bool) (edge rag.EdgeID, score float64, ok bool) {
	for q.entries.Len() > 0 {
		top := heap.Pop(&q.entries).(queueEntry)
		if !valid(top.edge) {
			q.stale++
			continue
		}
		return top.edge, top.score, true
	}
	return rag.NoEdge, 0, false
}

func (q *mergeQueue) len() int { return q.entries.Len() }
