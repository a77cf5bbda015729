package pipeline

import (
	"sync"
)

const initialQueueCapacity = 64

// Queue is a thread-safe growable ring buffer. The serve loop uses it to
// hold deliveries until a batch is ready.
type Queue[T any] struct {
	items    []T
	head     int // next item to dequeue
	tail     int // next slot to enqueue
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items:    make([]T, initialQueueCapacity),
		capacity: initialQueueCapacity,
	}
}

// Enqueue appends item, doubling the buffer when full.
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size >= q.capacity {
		q.grow()
	}
	q.items[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.size++
}

// Drain removes up to limit items, oldest first. limit < 1 drains everything.
func (q *Queue[T]) Drain(limit int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, q.pop())
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.size
}

// pop removes the head item; the caller holds the lock and has checked size.
func (q *Queue[T]) pop() T {
	var zero T
	item := q.items[q.head]
	q.items[q.head] = zero // release for GC
	q.head = (q.head + 1) % q.capacity
	q.size--
	return item
}

func (q *Queue[T]) grow() {
	newCapacity := q.capacity * 2
	newItems := make([]T, newCapacity)
	for i := 0; i < q.size; i++ {
		newItems[i] = q.items[(q.head+i)%q.capacity]
	}
	q.items = newItems
	q.head = 0
	q.tail = q.size
	q.capacity = newCapacity
}
