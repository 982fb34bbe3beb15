package queue

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Record is the serializable, tree-shaped form of a node.
// Converting a node to a record and back preserves order, nesting and song identity.
type Record struct {
	Kind       string   `yaml:"kind" json:"kind"`
	SongID     string   `yaml:"song_id,omitempty" json:"song_id,omitempty"`
	DurationMs int64    `yaml:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	Label      string   `yaml:"label,omitempty" json:"label,omitempty"`
	Children   []Record `yaml:"children,omitempty" json:"children,omitempty"`
}

// TreeRecord is the serializable form of a whole queue including its cursor.
type TreeRecord struct {
	Root   Record `yaml:"root" json:"root"`
	Cursor []int  `yaml:"cursor,omitempty" json:"cursor,omitempty"`
}

// ToRecord converts the subtree to its record form.
func (n *Node) ToRecord() Record {
	if n.IsLeaf() {
		return Record{
			Kind:       KindLeaf.String(),
			SongID:     n.SongID.String(),
			DurationMs: n.DurationHint.Milliseconds(),
		}
	}
	r := Record{
		Kind:     KindGroup.String(),
		Label:    n.Label,
		Children: make([]Record, len(n.Children)),
	}
	for i, child := range n.Children {
		r.Children[i] = child.ToRecord()
	}
	return r
}

// FromRecord rebuilds a node from its record form.
func FromRecord(r Record) (*Node, error) {
	switch r.Kind {
	case KindLeaf.String():
		if len(r.Children) > 0 {
			return nil, errors.Wrapf(ErrInvalidRecord, "leaf %q has children", r.SongID)
		}
		id := song.ID(r.SongID)
		if id.IsZero() {
			return nil, errors.Wrap(ErrInvalidRecord, "leaf without song id")
		}
		return NewLeaf(id, time.Duration(r.DurationMs)*time.Millisecond), nil
	case KindGroup.String():
		children := make([]*Node, len(r.Children))
		for i, cr := range r.Children {
			child, err := FromRecord(cr)
			if err != nil {
				return nil, errors.Wrapf(err, "child %d of %q", i, r.Label)
			}
			children[i] = child
		}
		return NewGroup(r.Label, children...), nil
	default:
		return nil, errors.Wrapf(ErrInvalidRecord, "unknown node kind %q", r.Kind)
	}
}

// Export returns the record form of the whole queue.
func (t *Tree) Export() TreeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TreeRecord{
		Root:   t.root.ToRecord(),
		Cursor: t.cursor.Clone(),
	}
}

// Import rebuilds a queue from its record form. A cursor that does not resolve
// to a leaf is dropped.
func Import(r TreeRecord) (*Tree, error) {
	root, err := FromRecord(r.Root)
	if err != nil {
		return nil, err
	}
	t, err := NewTreeFromRoot(root)
	if err != nil {
		return nil, err
	}
	if len(r.Cursor) > 0 {
		if node := t.resolveLocked(Path(r.Cursor)); node != nil && node.IsLeaf() {
			t.pointLocked(Path(r.Cursor).Clone())
		}
	}
	return t, nil
}
