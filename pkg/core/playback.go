// pkg/core/playback.go
package core

import "time"

// PlaybackStatus is the run state of a playback timeline.
type PlaybackStatus int

const (
	Stopped PlaybackStatus = iota
	Playing
)

func (s PlaybackStatus) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// PlaybackState is a point-in-time copy of a playback timeline.
type PlaybackState struct {
	Status   PlaybackStatus `json:"status"`
	Progress float64        `json:"progress"` // 0..100
	Speed    float64        `json:"speed"`
	LastTick time.Time      `json:"-"`
}

// Playing reports whether the timeline is advancing.
func (s PlaybackState) Playing() bool {
	return s.Status == Playing
}
