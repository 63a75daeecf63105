//go:build !debug

package channel

// New creates a buffered channel. Build with -tags debug to get unbuffered
// channels that surface ordering assumptions.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
