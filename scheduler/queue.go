package scheduler

import (
	"container/heap"
	"sync"
)

// jobHeap is the container/heap.Interface implementation backing
// PriorityQueue: a binary max-heap ordered by Priority descending, then
// insertionOrder ascending within a priority class.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].insertionOrder < h[j].insertionOrder
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// PriorityQueue is a thread-safe binary max-heap over Jobs. Push assigns
// each job a unique ID and stable FIFO tie-break order; Pop always
// returns the highest-Priority job, and among equal priorities, the one
// pushed first.
type PriorityQueue struct {
	mu               sync.Mutex
	heap             jobHeap
	nextID           ID
	insertionCounter uint64
}

// NewPriorityQueue creates an empty priority queue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{nextID: 1}
}

// Push inserts a job of the given priority and type, returning its
// assigned ID.
func (q *PriorityQueue) Push(priority Priority, jobType Type) ID {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextID
	q.nextID++
	order := q.insertionCounter
	q.insertionCounter++

	job := &Job{ID: id, Priority: priority, Type: jobType, insertionOrder: order}
	heap.Push(&q.heap, job)
	return id
}

// PushBack reinserts a previously-popped job unchanged, keeping its ID,
// Priority and original insertionOrder so it keeps its place among jobs
// of equal priority rather than being treated as newly submitted. Used
// when a job is dequeued by mistake (e.g. the IO worker popping a job
// that turned out not to be a LoadFile after all) and must go back
// exactly where it came from.
func (q *PriorityQueue) PushBack(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, job)
}

// Pop removes and returns the highest-priority job, or (nil, false) if
// the queue is empty.
func (q *PriorityQueue) Pop() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil, false
	}
	job := heap.Pop(&q.heap).(*Job)
	return job, true
}

// Peek returns the highest-priority job without removing it, or
// (nil, false) if the queue is empty.
func (q *PriorityQueue) Peek() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil, false
	}
	return q.heap[0], true
}

// Len returns the number of jobs currently queued.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// IsEmpty reports whether the queue has no jobs.
func (q *PriorityQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes every job from the queue.
func (q *PriorityQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.heap = nil
}

// RemoveIf removes every job matching predicate, returning how many were
// removed. Used to cancel all jobs of a given Kind in one call, e.g.
// cancelling every queued OCR job.
func (q *PriorityQueue) RemoveIf(predicate func(*Job) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := len(q.heap)
	remaining := make(jobHeap, 0, before)
	for _, job := range q.heap {
		if !predicate(job) {
			remaining = append(remaining, job)
		}
	}
	q.heap = remaining
	heap.Init(&q.heap)
	return before - len(q.heap)
}

// Jobs returns a snapshot of every queued job, in arbitrary (non-priority)
// order. Intended for debugging/inspection.
func (q *PriorityQueue) Jobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.heap))
	copy(out, q.heap)
	return out
}
