package playback

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckmatch/routecompare/pkg/core"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// leakyScheduler keeps callbacks even after they are cancelled so tests can
// replay stale frames.
type leakyScheduler struct {
	callbacks []func(time.Time)
}

func (s *leakyScheduler) Schedule(fn func(time.Time)) func() {
	s.callbacks = append(s.callbacks, fn)
	return func() {}
}

func (s *leakyScheduler) last() func(time.Time) {
	return s.callbacks[len(s.callbacks)-1]
}

func TestNewController_InitialState(t *testing.T) {
	c := NewController(NewManualScheduler())

	st := c.State()
	assert.Equal(t, core.Stopped, st.Status)
	assert.Equal(t, 0.0, st.Progress)
	assert.Equal(t, 1.0, st.Speed)
	assert.True(t, st.LastTick.IsZero())
}

func TestTogglePlay_SchedulesFrame(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)

	c.TogglePlay()

	assert.True(t, c.Playing())
	assert.Equal(t, 1, sched.Pending())
}

func TestTick_FirstFrameHasZeroDelta(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()

	require.Equal(t, 1, sched.Fire(t0))
	assert.Equal(t, 0.0, c.Progress())
	assert.Equal(t, t0, c.State().LastTick)
	assert.Equal(t, 1, sched.Pending())
}

func TestTick_AdvancesByElapsedTime(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)

	sched.Fire(t0.Add(100 * time.Millisecond))

	// (100/50) * 1 * 0.5
	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
	assert.True(t, c.Playing())
}

func TestTick_SpeedMultiplier(t *testing.T) {
	for _, speed := range AllowedSpeeds {
		sched := NewManualScheduler()
		c := NewController(sched)
		require.NoError(t, c.SetSpeed(speed))
		c.TogglePlay()
		sched.Fire(t0)
		sched.Fire(t0.Add(100 * time.Millisecond))

		assert.InDelta(t, 1.0*speed, c.Progress(), 1e-9, "speed %v", speed)
	}
}

func TestTick_StopsAtHundred(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)

	sched.Fire(t0.Add(10 * time.Second))

	assert.Equal(t, MaxProgress, c.Progress())
	assert.False(t, c.Playing())
	assert.Equal(t, 0, sched.Pending())
}

func TestTick_ClampsOvershoot(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	require.NoError(t, c.SetSpeed(4))
	c.TogglePlay()
	sched.Fire(t0)

	sched.Fire(t0.Add(time.Minute))

	assert.Equal(t, MaxProgress, c.Progress())
	assert.False(t, c.Playing())
}

func TestTogglePlay_AtEndRewinds(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)
	sched.Fire(t0.Add(10 * time.Second))
	require.Equal(t, MaxProgress, c.Progress())

	c.TogglePlay()

	assert.True(t, c.Playing())
	assert.Equal(t, 0.0, c.Progress())
}

func TestTogglePlay_PauseCancelsPendingFrame(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)
	sched.Fire(t0.Add(200 * time.Millisecond))
	progress := c.Progress()

	c.TogglePlay()

	assert.False(t, c.Playing())
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, 0, sched.Fire(t0.Add(time.Second)))
	assert.Equal(t, progress, c.Progress())
}

func TestTogglePlay_ResumeDoesNotCountPausedTime(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)
	sched.Fire(t0.Add(100 * time.Millisecond))
	c.TogglePlay() // pause

	c.TogglePlay() // resume an hour later
	sched.Fire(t0.Add(time.Hour))

	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
	assert.True(t, c.Playing())
}

func TestStaleFrameAfterReset_IsNoOp(t *testing.T) {
	sched := &leakyScheduler{}
	c := NewController(sched)
	c.TogglePlay()
	stale := sched.last()

	c.Reset()
	stale(t0)
	stale(t0.Add(time.Second))

	assert.False(t, c.Playing())
	assert.Equal(t, 0.0, c.Progress())
}

func TestStaleFrameAfterReplay_IsNoOp(t *testing.T) {
	sched := &leakyScheduler{}
	c := NewController(sched)
	c.TogglePlay()
	stale := sched.last()
	c.TogglePlay()
	c.TogglePlay()
	current := sched.last()

	stale(t0)
	assert.True(t, c.State().LastTick.IsZero(), "stale frame must not record a timestamp")
	callbacks := len(sched.callbacks)

	current(t0)
	assert.Equal(t, t0, c.State().LastTick)
	assert.Equal(t, callbacks+1, len(sched.callbacks), "only the live frame schedules the next one")
}

func TestReset_StopsAndRewinds(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)
	sched.Fire(t0.Add(time.Second))
	require.Greater(t, c.Progress(), 0.0)

	c.Reset()

	assert.False(t, c.Playing())
	assert.Equal(t, 0.0, c.Progress())
	assert.Equal(t, 0, sched.Pending())
}

func TestSetSpeed_RejectsUnknownValues(t *testing.T) {
	c := NewController(NewManualScheduler())

	for _, bad := range []float64{0, 3, -1, 8, 0.25} {
		err := c.SetSpeed(bad)
		assert.ErrorIs(t, err, ErrInvalidSpeed)
	}
	assert.Equal(t, 1.0, c.Speed())

	require.NoError(t, c.SetSpeed(2))
	assert.Equal(t, 2.0, c.Speed())
}

func TestSetSpeed_KeepsProgressAndTiming(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)
	sched.Fire(t0.Add(100 * time.Millisecond))

	require.NoError(t, c.SetSpeed(4))
	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
	assert.True(t, c.Playing())

	sched.Fire(t0.Add(200 * time.Millisecond))
	assert.InDelta(t, 1.0+4.0, c.Progress(), 1e-9)
}

func TestTick_NoOpWhenStopped(t *testing.T) {
	c := NewController(NewManualScheduler())
	c.Tick(t0)
	c.Tick(t0.Add(time.Second))
	assert.Equal(t, 0.0, c.Progress())
}

func TestTick_ReplacesPendingFrame(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()

	c.Tick(t0)
	c.Tick(t0.Add(100 * time.Millisecond))

	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
	assert.Equal(t, 1, sched.Pending())
}

func TestTick_ProgressIsMonotonic(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	require.NoError(t, c.SetSpeed(2))
	c.TogglePlay()

	rng := rand.New(rand.NewSource(7))
	now := t0
	prev := 0.0
	for c.Playing() {
		now = now.Add(time.Duration(rng.Intn(40)) * time.Millisecond)
		sched.Fire(now)
		assert.GreaterOrEqual(t, c.Progress(), prev)
		assert.LessOrEqual(t, c.Progress(), MaxProgress)
		prev = c.Progress()
	}
	assert.Equal(t, MaxProgress, c.Progress())
}

func TestTick_BackwardsClockCountsAsZero(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()
	sched.Fire(t0)
	sched.Fire(t0.Add(-time.Second))

	assert.Equal(t, 0.0, c.Progress())
}

func TestOnChange_CalledForEveryChange(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	var states []core.PlaybackState
	c.OnChange(func(s core.PlaybackState) {
		states = append(states, s)
	})

	c.TogglePlay()
	sched.Fire(t0)
	require.NoError(t, c.SetSpeed(2))
	c.Reset()

	require.Len(t, states, 4)
	assert.Equal(t, core.Playing, states[0].Status)
	assert.Equal(t, 2.0, states[2].Speed)
	assert.Equal(t, core.Stopped, states[3].Status)
}

func TestClose_CancelsAndIgnoresFurtherCalls(t *testing.T) {
	sched := NewManualScheduler()
	c := NewController(sched)
	c.TogglePlay()

	c.Close()

	assert.Equal(t, 0, sched.Pending())
	c.TogglePlay()
	assert.False(t, c.Playing())
	assert.Equal(t, 0, sched.Pending())
}
