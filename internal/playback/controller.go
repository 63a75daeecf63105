// Package playback drives the shared timeline that moves both strategy
// markers along their paths.
package playback

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/truckmatch/routecompare/pkg/core"
)

// MaxProgress is the end of the timeline.
const MaxProgress = 100.0

// Timeline rate: at speed 1 progress grows by 0.5 every 50 ms, so a full
// run takes 10 seconds.
const (
	stepMs   = 50.0
	stepSize = 0.5
)

// AllowedSpeeds are the accepted speed multipliers.
var AllowedSpeeds = []float64{0.5, 1, 2, 4}

// ErrInvalidSpeed is returned by SetSpeed for values outside AllowedSpeeds.
var ErrInvalidSpeed = errors.New("invalid playback speed")

// Controller owns the playback state machine. It is not safe for concurrent
// use: every method and every scheduled callback must run on one goroutine.
type Controller struct {
	sched Scheduler

	status   core.PlaybackStatus
	progress float64
	speed    float64
	lastTick time.Time
	hasTick  bool

	cancel func()
	gen    uint64
	closed bool

	onChange func(core.PlaybackState)
}

// NewController creates a stopped controller at progress 0 and speed 1.
func NewController(sched Scheduler) *Controller {
	return &Controller{
		sched: sched,
		speed: 1,
	}
}

// OnChange registers fn to be called after every state change.
func (c *Controller) OnChange(fn func(core.PlaybackState)) {
	c.onChange = fn
}

// State returns a copy of the current state.
func (c *Controller) State() core.PlaybackState {
	s := core.PlaybackState{
		Status:   c.status,
		Progress: c.progress,
		Speed:    c.speed,
	}
	if c.hasTick {
		s.LastTick = c.lastTick
	}
	return s
}

// Progress returns the timeline position in [0, 100].
func (c *Controller) Progress() float64 {
	return c.progress
}

// Speed returns the current multiplier.
func (c *Controller) Speed() float64 {
	return c.speed
}

// Playing reports whether the timeline is advancing.
func (c *Controller) Playing() bool {
	return c.status == core.Playing
}

// TogglePlay starts or pauses playback. Starting a finished timeline
// rewinds it first.
func (c *Controller) TogglePlay() {
	if c.closed {
		return
	}
	if c.status == core.Stopped {
		if c.progress >= MaxProgress {
			c.progress = 0
		}
		c.status = core.Playing
		c.hasTick = false
		c.schedule()
	} else {
		c.status = core.Stopped
		c.cancelPending()
	}
	c.notify()
}

// Reset stops playback and rewinds to the start.
func (c *Controller) Reset() {
	if c.closed {
		return
	}
	c.cancelPending()
	c.status = core.Stopped
	c.progress = 0
	c.hasTick = false
	c.notify()
}

// SetSpeed changes the multiplier without touching progress or timing.
func (c *Controller) SetSpeed(m float64) error {
	if !ValidSpeed(m) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, m)
	}
	if c.closed {
		return nil
	}
	c.speed = m
	c.notify()
	return nil
}

// Tick advances the timeline as if a frame fired at now. It replaces any
// pending frame. It is a no-op unless playing.
func (c *Controller) Tick(now time.Time) {
	if c.closed || c.status != core.Playing {
		return
	}
	c.cancelPending()
	c.advance(now)
}

// Close cancels any pending frame. The controller ignores all calls afterwards.
func (c *Controller) Close() {
	c.cancelPending()
	c.status = core.Stopped
	c.closed = true
}

func (c *Controller) onFrame(gen uint64, now time.Time) {
	if c.closed || c.status != core.Playing || gen != c.gen {
		return
	}
	c.cancel = nil
	c.advance(now)
}

func (c *Controller) advance(now time.Time) {
	var deltaMs float64
	if c.hasTick {
		deltaMs = math.Max(0, float64(now.Sub(c.lastTick))/float64(time.Millisecond))
	}
	c.lastTick = now
	c.hasTick = true

	c.progress = math.Min(MaxProgress, c.progress+(deltaMs/stepMs)*c.speed*stepSize)
	if c.progress >= MaxProgress {
		c.status = core.Stopped
	} else {
		c.schedule()
	}
	c.notify()
}

func (c *Controller) schedule() {
	c.gen++
	gen := c.gen
	c.cancel = c.sched.Schedule(func(now time.Time) {
		c.onFrame(gen, now)
	})
}

func (c *Controller) cancelPending() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.State())
	}
}

// ValidSpeed reports whether m is one of AllowedSpeeds.
func ValidSpeed(m float64) bool {
	for _, s := range AllowedSpeeds {
		if m == s {
			return true
		}
	}
	return false
}
