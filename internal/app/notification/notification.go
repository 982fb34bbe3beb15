package notification

import (
	"time"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Type represents the kind of a notification.
type Type int

const (
	TypeInitialState   Type = iota // Sent once to a new subscriber
	TypeQueueChanged               // Tree structure or cursor changed
	TypePlaybackState              // Engine state changed
	TypeProgress                   // Periodic position update
	TypeSongStarted                // A new song became current and started loading
	TypeCouldNotPlay               // A song failed to load and was skipped
	TypeQueueExhausted             // Playback reached the end of the queue
	TypeDeviceError                // Audio output failed, waiting for the user
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeInitialState:
		return "initial_state"
	case TypeQueueChanged:
		return "queue_changed"
	case TypePlaybackState:
		return "playback_state"
	case TypeProgress:
		return "progress"
	case TypeSongStarted:
		return "song_started"
	case TypeCouldNotPlay:
		return "could_not_play"
	case TypeQueueExhausted:
		return "queue_exhausted"
	case TypeDeviceError:
		return "device_error"
	default:
		return "unknown"
	}
}

// Notification is a single event delivered to subscribers.
type Notification struct {
	SequenceNo uint64
	Type       Type
	At         time.Time
	SongID     song.ID
	State      string        // Playback state name
	Position   time.Duration // Playback position
	Duration   time.Duration // Length of the current song, zero when unknown
	Message    string        // Human-readable detail
}
