package playback

import "github.com/osa030/queuebox/internal/domain/song"

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged EventType = iota // Engine moved to another state
	EventProgress                      // Periodic position report while playing
	EventFinished                      // Song reached its natural end
	EventLoadFailed                    // Song could not be loaded or started
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventProgress:
		return "progress"
	case EventFinished:
		return "finished"
	case EventLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	SongID song.ID
	Status Status
	Err    *PlaybackError // EventLoadFailed only
}
