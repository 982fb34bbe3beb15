// Package filter provides the admission chain applied to songs before they
// enter the queue.
package filter

import (
	"context"
	"time"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Origin tells how a song is being enqueued.
type Origin int

const (
	OriginUser     Origin = iota // Single song requested by a user
	OriginPlaylist               // Song arriving as part of a loaded playlist
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Request represents a song about to be enqueued.
type Request struct {
	SongID song.ID
	Origin Origin
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "duplicate_song", "duration_limit_exceeded"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// QueueReader gives filters a read-only view of the queue.
type QueueReader interface {
	Contains(id song.ID) bool
	SongIDs() []song.ID
	TotalDuration() time.Duration
}

// Catalog resolves metadata of songs already queued.
type Catalog interface {
	Metadata(ctx context.Context, id song.ID) (song.Metadata, error)
}

// Deps are the runtime collaborators handed to filter factories.
type Deps struct {
	Queue   QueueReader
	Catalog Catalog
}

// Filter is the interface for enqueue filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied to songs of the given origin.
	AppliesTo(origin Origin) bool
	// Check performs the filter check.
	Check(ctx context.Context, req Request, m song.Metadata) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func(Deps) Filter)

// Register registers a filter factory.
func Register(name string, factory func(Deps) Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func(Deps) Filter {
	return registry
}
