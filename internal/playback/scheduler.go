package playback

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler requests a single future callback carrying the frame timestamp.
// The returned cancel function prevents a callback that has not run yet.
type Scheduler interface {
	Schedule(fn func(now time.Time)) (cancel func())
}

// FrameScheduler fires each callback once after a fixed interval. Callbacks
// are handed to post, which must run them on the owner's control goroutine.
type FrameScheduler struct {
	interval time.Duration
	post     func(func())
	now      func() time.Time
}

// NewFrameScheduler creates a scheduler firing after interval.
func NewFrameScheduler(interval time.Duration, post func(func())) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{
		interval: interval,
		post:     post,
		now:      time.Now,
	}
}

// Schedule implements Scheduler.
func (s *FrameScheduler) Schedule(fn func(now time.Time)) func() {
	var stopped atomic.Bool
	t := time.AfterFunc(s.interval, func() {
		if stopped.Load() {
			return
		}
		s.post(func() {
			if stopped.Load() {
				return
			}
			fn(s.now())
		})
	})
	return func() {
		stopped.Store(true)
		t.Stop()
	}
}

// ManualScheduler queues callbacks until the caller fires them with a chosen
// timestamp. Used to drive playback deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualTask
}

type manualTask struct {
	fn        func(time.Time)
	cancelled bool
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(fn func(now time.Time)) func() {
	task := &manualTask{fn: fn}
	s.mu.Lock()
	s.pending = append(s.pending, task)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		task.cancelled = true
		s.mu.Unlock()
	}
}

// Pending returns the number of callbacks that are queued and not cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Fire runs every queued, uncancelled callback with now and returns how many ran.
// Callbacks scheduled while firing are kept for the next call.
func (s *ManualScheduler) Fire(now time.Time) int {
	s.mu.Lock()
	tasks := s.pending
	s.pending = nil
	s.mu.Unlock()

	n := 0
	for _, t := range tasks {
		s.mu.Lock()
		cancelled := t.cancelled
		s.mu.Unlock()
		if cancelled {
			continue
		}
		t.fn(now)
		n++
	}
	return n
}
