// Package song provides the Song identity and metadata entities.
package song

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when the catalog does not know a song.
var ErrNotFound = errors.New("song not found")

// ID is the opaque, stable catalog identifier of a song.
type ID string

// String returns the identifier as a plain string.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Metadata represents catalog information about a song.
// Contains only information retrieved from the remote backend.
type Metadata struct {
	ID        ID            // Catalog ID
	Title     string        // Song title
	Artists   []string      // Artist names
	Channel   string        // Uploader/channel name
	Album     string        // Album name (may be empty)
	Duration  time.Duration // Song duration
	URL       string        // Catalog web page URL
	Thumbnail string        // Thumbnail URL
	Tags      []string      // Free-form tags
}

// DisplayArtist returns the artists joined for display, falling back to the channel.
func (m *Metadata) DisplayArtist() string {
	if len(m.Artists) > 0 {
		return strings.Join(m.Artists, ", ")
	}
	return m.Channel
}

// DisplayName returns "artist - title" or just the title when no artist is known.
func (m *Metadata) DisplayName() string {
	artist := m.DisplayArtist()
	if artist == "" {
		return m.Title
	}
	return artist + " - " + m.Title
}
