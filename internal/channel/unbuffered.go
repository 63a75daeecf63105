package channel

import "sync"

// Unbuffered is an unbuffered channel implementation
type Unbuffered[T any] struct {
	mu     sync.RWMutex
	closed bool
	ch     chan T
}

// NewUnbuffered creates a new unbuffered channel
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send blocks until the value is received.
func (u *Unbuffered[T]) Send(v T) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.closed {
		return false
	}
	u.ch <- v
	return true
}

func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len always returns 0 for unbuffered channels
func (u *Unbuffered[T]) Len() int {
	return 0
}

func (u *Unbuffered[T]) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.closed {
		u.closed = true
		close(u.ch)
	}
}
