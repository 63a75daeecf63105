package channel

import "sync"

// Buffered is a buffered channel implementation
type Buffered[T any] struct {
	mu     sync.RWMutex
	closed bool
	ch     chan T
}

// NewBuffered creates a new buffered channel with the given size
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send blocks while the buffer is full. Close waits for blocked senders, so
// the receiver must keep draining until Receive is closed.
func (b *Buffered[T]) Send(v T) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	b.ch <- v
	return true
}

func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of items currently in the buffer
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

func (b *Buffered[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
