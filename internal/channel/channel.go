// Package channel provides closable mailboxes that are safe to send on after
// they are closed.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel. Send reports false once the
// channel has been closed instead of panicking.
type Sender[T any] interface {
	Send(T) bool
}

// Channel combines read and write access. Close is idempotent.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
