package queue

import (
	"container/heap"
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// --- Work Queue Implementation ---

// workItem is an entry of the work heap
type workItem[T any] struct {
	value    T
	priority int    // Lower value means served first
	seq      uint64 // Insertion order, breaks priority ties so equal priorities stay FIFO
	index    int    // The index of the item in the heap (required by heap interface)
}

// workHeap implements heap.Interface
type workHeap[T any] []*workItem[T]

func (h workHeap[T]) Len() int { return len(h) }

func (h workHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h workHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

// Push adds an element to the heap
func (h *workHeap[T]) Push(x any) {
	item := x.(*workItem[T])
	item.index = len(*h)
	*h = append(*h, item)
}

// Pop removes and returns the highest priority element (minimum value) from the heap
func (h *workHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*h = old[0 : n-1]
	return item
}

// WorkQueue is a blocking, closable priority queue shared by producers and worker goroutines
// Closing it is the end-of-work sentinel: workers drain what is left and then see ok=false
type WorkQueue[T any] struct {
	h      workHeap[T]
	seq    uint64
	mu     sync.Mutex
	cond   *sync.Cond // Condition variable to wait for items
	closed bool
	log    *logrus.Entry
}

// NewWorkQueue creates an empty open queue
func NewWorkQueue[T any](log *logrus.Entry) *WorkQueue[T] {
	q := &WorkQueue[T]{log: log}
	q.cond = sync.NewCond(&q.mu) // Initialize condition variable
	heap.Init(&q.h)              // Initialize the underlying heap
	return q
}

// Add pushes a value with the given priority; it reports false if the queue is already closed
func (q *WorkQueue[T]) Add(value T, priority int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warn("Attempted to add item to closed work queue")
		return false
	}

	q.seq++
	heap.Push(&q.h, &workItem[T]{value: value, priority: priority, seq: q.seq})
	q.cond.Signal() // Signal one waiting worker that an item is available
	return true
}

// Requeue pushes a value back even after Close, for consumers that retry their own items
// A closed queue is only drained once requeued values are popped too
func (q *WorkQueue[T]) Requeue(value T, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	heap.Push(&q.h, &workItem[T]{value: value, priority: priority, seq: q.seq})
	q.cond.Signal()
}

// Pop retrieves and removes the highest priority value
// It blocks while the queue is empty until an item is added, the queue is closed or ctx is done
// Returns false once the queue is closed and empty, or when ctx is done
func (q *WorkQueue[T]) Pop(ctx context.Context) (T, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	// Wait while the queue is empty AND not closed
	for len(q.h) == 0 {
		if q.closed || ctx.Err() != nil {
			return zero, false
		}
		// Wait releases the lock and waits for a Signal/Broadcast; reacquires lock upon waking
		q.cond.Wait()
	}
	if ctx.Err() != nil {
		return zero, false
	}

	item := heap.Pop(&q.h).(*workItem[T])
	return item.value, true
}

// TryPop is Pop without blocking
func (q *WorkQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.h) == 0 {
		return zero, false
	}
	item := heap.Pop(&q.h).(*workItem[T])
	return item.value, true
}

// Close signals that no more items will be added to the queue
func (q *WorkQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast() // Wake up ALL waiting workers so they can check the closed status
	}
}

// Closed reports whether Close was called
func (q *WorkQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the current number of items in the queue (thread-safe)
func (q *WorkQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
