// Package queue provides a small bounded FIFO shared between producers that
// must never block and a consumer that drains in batches.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO. When a capacity is set, pushing onto
// a full queue evicts the oldest items.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	dropped  int
}

// New creates an empty queue. A capacity of zero or less means unbounded.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{capacity: capacity}
}

// Push appends items and returns how many old items were evicted to make room.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.capacity <= 0 || len(q.items) <= q.capacity {
		return 0
	}
	evicted := len(q.items) - q.capacity
	q.items = append(q.items[:0:0], q.items[evicted:]...)
	q.dropped += evicted
	return evicted
}

// Pop removes and returns the first item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of evicted items.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain returns all items in order and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = nil
	return result
}
