package graph

import "container/heap"

// queueItem is one node pair awaiting a dreaming pass, keyed by the
// certainty × (1 − tension) of the tensor that enqueued it.
type queueItem struct {
	priority float64
	source   string
	target   string
}

// pairQueue is a max-heap of node pairs. It implements heap.Interface; use
// the push/snapshot helpers rather than the heap methods directly.
type pairQueue []queueItem

func (q pairQueue) Len() int           { return len(q) }
func (q pairQueue) Less(i, j int) bool { return q[i].priority > q[j].priority }
func (q pairQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pairQueue) Push(x any)        { *q = append(*q, x.(queueItem)) }
func (q *pairQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q *pairQueue) push(priority float64, source, target string) {
	heap.Push(q, queueItem{priority: priority, source: source, target: target})
}

// drain returns the queued pairs in priority order without consuming the
// queue. Dreaming reads the queue; only insertion grows it.
func (q *pairQueue) drain() []queueItem {
	tmp := make(pairQueue, len(*q))
	copy(tmp, *q)
	heap.Init(&tmp)

	out := make([]queueItem, 0, len(tmp))
	for tmp.Len() > 0 {
		out = append(out, heap.Pop(&tmp).(queueItem))
	}
	return out
}
