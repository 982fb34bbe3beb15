// Package playlist provides the saved Playlist domain entity.
package playlist

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

// ErrEmptyName is returned when a playlist is saved without a name.
var ErrEmptyName = errors.New("playlist name is empty")

// Playlist represents a named group saved from the queue.
type Playlist struct {
	ID      uuid.UUID   // Playlist ID
	Name    string      // Playlist name
	Root    *queue.Node // Saved group, children in stored order
	SavedAt time.Time   // When the playlist was last saved
}

// New creates a playlist from a copy of the given group.
// A leaf is wrapped in a group so every playlist loads back as a group.
func New(name string, node *queue.Node, now time.Time) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if node == nil {
		return nil, errors.Wrap(queue.ErrInvalidNode, "playlist root is nil")
	}

	root := node.Clone()
	if root.IsLeaf() {
		root = queue.NewGroup(name, root)
	}
	if root.Label == "" {
		root.Label = name
	}
	return &Playlist{
		ID:      uuid.New(),
		Name:    name,
		Root:    root,
		SavedAt: now,
	}, nil
}

// SongIDs returns all song IDs in the playlist in traversal order.
func (p *Playlist) SongIDs() []song.ID {
	if p.Root == nil {
		return []song.ID{}
	}
	return p.Root.SongIDs()
}

// TotalDuration returns the sum of the known song durations.
func (p *Playlist) TotalDuration() time.Duration {
	if p.Root == nil {
		return 0
	}
	return p.Root.TotalDuration()
}

// Len returns the number of songs in the playlist.
func (p *Playlist) Len() int {
	if p.Root == nil {
		return 0
	}
	return p.Root.LeafCount()
}

// Instantiate returns a fresh copy of the saved group for insertion into a queue.
func (p *Playlist) Instantiate() *queue.Node {
	if p.Root == nil {
		return queue.NewGroup(p.Name)
	}
	return p.Root.Clone()
}
