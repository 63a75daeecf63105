//go:build debug

package channel

// New creates an unbuffered channel; size is ignored in debug builds.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
