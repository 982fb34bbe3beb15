// Package queue provides the hierarchical playback queue.
package queue

import (
	"time"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Kind represents the variant of a queue node.
type Kind int

const (
	KindLeaf  Kind = iota // Node references a single playable song
	KindGroup             // Node holds an ordered sequence of child nodes
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node is a queue entry: either a leaf (song) or a group (album, playlist, sub-queue).
// Nodes carry no parent reference; parents are derived by walking from the root.
type Node struct {
	Kind         Kind
	SongID       song.ID       // Leaf only
	DurationHint time.Duration // Leaf only, may be zero when unknown
	Label        string        // Group only
	Children     []*Node       // Group only
}

// NewLeaf creates a leaf node for the given song.
func NewLeaf(id song.ID, durationHint time.Duration) *Node {
	return &Node{
		Kind:         KindLeaf,
		SongID:       id,
		DurationHint: durationHint,
	}
}

// NewGroup creates a group node with the given children.
func NewGroup(label string, children ...*Node) *Node {
	if children == nil {
		children = make([]*Node, 0)
	}
	return &Node{
		Kind:     KindGroup,
		Label:    label,
		Children: children,
	}
}

// IsLeaf returns true if the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindLeaf
}

// IsGroup returns true if the node is a group.
func (n *Node) IsGroup() bool {
	return n.Kind == KindGroup
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:         n.Kind,
		SongID:       n.SongID,
		DurationHint: n.DurationHint,
		Label:        n.Label,
	}
	if n.Kind == KindGroup {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// SongIDs returns every song in the subtree in traversal order.
func (n *Node) SongIDs() []song.ID {
	ids := make([]song.ID, 0)
	n.walk(nil, func(_ Path, leaf *Node) {
		ids = append(ids, leaf.SongID)
	})
	return ids
}

// LeafCount returns the number of leaves in the subtree.
func (n *Node) LeafCount() int {
	count := 0
	n.walk(nil, func(Path, *Node) { count++ })
	return count
}

// TotalDuration returns the sum of the duration hints in the subtree.
func (n *Node) TotalDuration() time.Duration {
	var total time.Duration
	n.walk(nil, func(_ Path, leaf *Node) { total += leaf.DurationHint })
	return total
}

// validate checks that the subtree is well formed.
func (n *Node) validate() error {
	if n == nil {
		return ErrInvalidNode
	}
	switch n.Kind {
	case KindLeaf:
		if n.SongID.IsZero() {
			return ErrInvalidNode
		}
		if len(n.Children) > 0 {
			return ErrInvalidNode
		}
	case KindGroup:
		for _, child := range n.Children {
			if err := child.validate(); err != nil {
				return err
			}
		}
	default:
		return ErrInvalidNode
	}
	return nil
}

// walk visits every leaf depth-first, children in stored order.
// Empty groups contribute nothing.
func (n *Node) walk(prefix Path, visit func(Path, *Node)) {
	if n == nil {
		return
	}
	if n.Kind == KindLeaf {
		visit(prefix, n)
		return
	}
	for i, child := range n.Children {
		child.walk(prefix.Child(i), visit)
	}
}

// contains reports whether candidate is n or appears anywhere below it.
func (n *Node) contains(candidate *Node) bool {
	if n == candidate {
		return true
	}
	for _, child := range n.Children {
		if child.contains(candidate) {
			return true
		}
	}
	return false
}
