// Package playback provides the audio engine that plays one song at a time.
package playback

import (
	"time"

	"github.com/osa030/queuebox/internal/domain/song"
)

// State represents the playback state.
type State int

const (
	StateIdle     State = iota // Nothing loaded
	StateLoading               // Waiting for the song's resource
	StatePlaying               // Song is playing
	StatePaused                // Song is paused
	StateFinished              // Song played to its end
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Active reports whether a song occupies the engine.
func (s State) Active() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}

// Status is a snapshot of the engine.
type Status struct {
	State    State
	SongID   song.ID       // Empty when idle
	Position time.Duration // Playing or paused only
	Duration time.Duration // Zero when unknown
	Volume   float64       // 0..1
	Seekable bool
}
