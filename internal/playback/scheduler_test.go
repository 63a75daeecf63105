package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameScheduler_PostsCallback(t *testing.T) {
	posted := make(chan func(), 1)
	s := NewFrameScheduler(5*time.Millisecond, func(fn func()) { posted <- fn })

	fired := make(chan time.Time, 1)
	s.Schedule(func(now time.Time) { fired <- now })

	select {
	case fn := <-posted:
		fn()
	case <-time.After(time.Second):
		t.Fatal("callback was not posted")
	}

	select {
	case now := <-fired:
		assert.False(t, now.IsZero())
	default:
		t.Fatal("callback did not run")
	}
}

func TestFrameScheduler_CancelBeforeFire(t *testing.T) {
	posted := make(chan func(), 1)
	s := NewFrameScheduler(20*time.Millisecond, func(fn func()) { posted <- fn })

	cancel := s.Schedule(func(time.Time) { t.Error("cancelled callback ran") })
	cancel()

	select {
	case <-posted:
		t.Fatal("cancelled callback was posted")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestFrameScheduler_CancelAfterPost(t *testing.T) {
	posted := make(chan func(), 1)
	s := NewFrameScheduler(time.Millisecond, func(fn func()) { posted <- fn })

	ran := false
	cancel := s.Schedule(func(time.Time) { ran = true })

	var fn func()
	select {
	case fn = <-posted:
	case <-time.After(time.Second):
		t.Fatal("callback was not posted")
	}
	cancel()
	fn()

	assert.False(t, ran)
}

func TestFrameScheduler_DefaultInterval(t *testing.T) {
	s := NewFrameScheduler(0, func(func()) {})
	assert.Equal(t, DefaultFrameInterval, s.interval)
}

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var got []time.Time

	s.Schedule(func(now time.Time) { got = append(got, now) })
	cancel := s.Schedule(func(now time.Time) { t.Error("cancelled task ran") })
	cancel()
	require.Equal(t, 1, s.Pending())

	assert.Equal(t, 1, s.Fire(t0))
	assert.Equal(t, []time.Time{t0}, got)
	assert.Equal(t, 0, s.Pending())
}
