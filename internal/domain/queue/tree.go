package queue

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/queuebox/internal/domain/song"
)

// LeafRef describes a leaf together with its current position.
type LeafRef struct {
	Path         Path
	SongID       song.ID
	DurationHint time.Duration
}

// Tree is the playback queue: a root group plus a cursor on the current leaf.
// Mutations take the write lock, so at most one structural change is in flight;
// readers may traverse concurrently.
type Tree struct {
	mu sync.RWMutex

	root   *Node
	cursor Path   // nil when nothing is current
	epoch  uint64 // bumped whenever the cursor is pointed at another leaf
}

// NewTree creates an empty queue.
func NewTree() *Tree {
	return &Tree{root: NewGroup("")}
}

// NewTreeFromRoot creates a queue owning the given root group. The cursor starts empty.
func NewTreeFromRoot(root *Node) (*Tree, error) {
	if root == nil || !root.IsGroup() {
		return nil, errors.Wrap(ErrInvalidNode, "root must be a group")
	}
	if err := root.validate(); err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

// Insert places node as the index-th child of the group at parent.
func (t *Tree) Insert(parent Path, index int, node *Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(parent, index, node)
}

// Append places node at the end of the group at parent.
func (t *Tree) Append(parent Path, node *Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	group := t.resolveLocked(parent)
	if group == nil || !group.IsGroup() {
		return errors.Wrapf(ErrInvalidPath, "parent %s is not a group", parent)
	}
	return t.insertLocked(parent, len(group.Children), node)
}

func (t *Tree) insertLocked(parent Path, index int, node *Node) error {
	group := t.resolveLocked(parent)
	if group == nil || !group.IsGroup() {
		return errors.Wrapf(ErrInvalidPath, "parent %s is not a group", parent)
	}
	if index < 0 || index > len(group.Children) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d not in [0, %d]", index, len(group.Children))
	}
	if err := node.validate(); err != nil {
		return err
	}
	if node.contains(t.root) || t.root.contains(node) {
		return errors.Wrap(ErrInvalidNode, "node is already part of the queue")
	}

	insertChild(group, index, node)
	if t.cursor != nil {
		t.cursor = t.cursor.afterInsertion(parent, index)
	}
	return nil
}

// Remove detaches the node at path and returns it.
// If the removed subtree contained the cursor, the cursor moves to the first
// leaf that followed the subtree, or clears when there is none.
func (t *Tree) Remove(path Path) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(path) == 0 {
		return nil, errors.Wrap(ErrInvalidPath, "cannot remove the root")
	}
	node := t.resolveLocked(path)
	if node == nil {
		return nil, errors.Wrapf(ErrInvalidPath, "no node at %s", path)
	}

	if t.cursor != nil {
		if t.cursor.HasPrefix(path) {
			next, ok := t.firstLeafAfterSubtreeLocked(path)
			if ok {
				t.pointLocked(next.afterRemoval(path))
			} else {
				t.pointLocked(nil)
			}
		} else {
			t.cursor = t.cursor.afterRemoval(path)
		}
	}

	parentPath, index := path.Parent()
	parent := t.resolveLocked(parentPath)
	removeChild(parent, index)
	return node, nil
}

// Move relocates the node at from to be the toIndex-th child of the group at toParent.
// toParent and toIndex are interpreted against the tree before the move; toIndex
// counts children of the destination once the moved node has been detached.
func (t *Tree) Move(from Path, toParent Path, toIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(from) == 0 {
		return errors.Wrap(ErrInvalidPath, "cannot move the root")
	}
	node := t.resolveLocked(from)
	if node == nil {
		return errors.Wrapf(ErrInvalidPath, "no node at %s", from)
	}
	if toParent.HasPrefix(from) {
		return errors.Wrapf(ErrCyclicMove, "%s is inside %s", toParent, from)
	}
	dest := t.resolveLocked(toParent)
	if dest == nil || !dest.IsGroup() {
		return errors.Wrapf(ErrInvalidPath, "destination %s is not a group", toParent)
	}

	fromParent, fromIndex := from.Parent()
	capacity := len(dest.Children)
	if fromParent.Equal(toParent) {
		capacity--
	}
	if toIndex < 0 || toIndex > capacity {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d not in [0, %d]", toIndex, capacity)
	}

	newParent := toParent.afterRemoval(from)

	if t.cursor != nil {
		if t.cursor.HasPrefix(from) {
			rel := t.cursor[len(from):]
			moved := newParent.Child(toIndex)
			t.cursor = append(moved, rel...)
		} else {
			t.cursor = t.cursor.afterRemoval(from).afterInsertion(newParent, toIndex)
		}
	}

	removeChild(t.resolveLocked(fromParent), fromIndex)
	insertChild(t.resolveLocked(newParent), toIndex, node)
	return nil
}

// Advance moves the cursor to the next leaf in traversal order and returns its song.
// With no cursor it starts at the first leaf. At the last leaf it returns false and
// leaves the cursor untouched.
func (t *Tree) Advance() (song.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, ok := t.nextLeafLocked()
	if !ok {
		return "", false
	}
	t.pointLocked(next.Path)
	return next.SongID, true
}

// Retreat moves the cursor to the previous leaf in traversal order.
// At the first leaf, or with no cursor, it returns false and changes nothing.
func (t *Tree) Retreat() (song.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor == nil {
		return "", false
	}
	var prev *LeafRef
	t.root.walk(nil, func(p Path, leaf *Node) {
		if p.Compare(t.cursor) < 0 {
			prev = &LeafRef{Path: p, SongID: leaf.SongID, DurationHint: leaf.DurationHint}
		}
	})
	if prev == nil {
		return "", false
	}
	t.pointLocked(prev.Path)
	return prev.SongID, true
}

// PeekNext returns the leaf Advance would move to, without moving.
func (t *Tree) PeekNext() (LeafRef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextLeafLocked()
}

// First moves the cursor to the first leaf.
func (t *Tree) First() (song.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var first *LeafRef
	t.root.walk(nil, func(p Path, leaf *Node) {
		if first == nil {
			first = &LeafRef{Path: p, SongID: leaf.SongID}
		}
	})
	if first == nil {
		return "", false
	}
	t.pointLocked(first.Path)
	return first.SongID, true
}

// SetCursor points the cursor at the leaf at path.
func (t *Tree) SetCursor(path Path) (song.ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := t.resolveLocked(path)
	if node == nil || !node.IsLeaf() {
		return "", errors.Wrapf(ErrInvalidPath, "%s is not a leaf", path)
	}
	t.pointLocked(path.Clone())
	return node.SongID, nil
}

// ClearCursor forgets the current leaf without touching the nodes.
func (t *Tree) ClearCursor() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pointLocked(nil)
}

// Clear removes every node and the cursor.
func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = NewGroup(t.root.Label)
	t.pointLocked(nil)
}

// Current returns the song at the cursor.
func (t *Tree) Current() (song.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.cursor == nil {
		return "", false
	}
	node := t.resolveLocked(t.cursor)
	if node == nil || !node.IsLeaf() {
		return "", false
	}
	return node.SongID, true
}

// CurrentPath returns a copy of the cursor, nil when nothing is current.
func (t *Tree) CurrentPath() Path {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor.Clone()
}

// CursorEpoch changes every time the cursor is pointed at another leaf,
// including the same song elsewhere in the queue. Edits that only shift the
// cursor's path leave it alone.
func (t *Tree) CursorEpoch() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.epoch
}

// Resolve returns a copy of the node at path.
func (t *Tree) Resolve(path Path) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.resolveLocked(path)
	if node == nil {
		return nil, errors.Wrapf(ErrInvalidPath, "no node at %s", path)
	}
	return node.Clone(), nil
}

// Snapshot returns a deep copy of the root and the cursor for read-only display.
func (t *Tree) Snapshot() (*Node, Path) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.Clone(), t.cursor.Clone()
}

// ChildCount returns the number of children of the group at path.
func (t *Tree) ChildCount(path Path) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	group := t.resolveLocked(path)
	if group == nil || !group.IsGroup() {
		return 0, errors.Wrapf(ErrInvalidPath, "%s is not a group", path)
	}
	return len(group.Children), nil
}

// Leaves returns every leaf in traversal order.
func (t *Tree) Leaves() []LeafRef {
	t.mu.RLock()
	defer t.mu.RUnlock()

	refs := make([]LeafRef, 0)
	t.root.walk(nil, func(p Path, leaf *Node) {
		refs = append(refs, LeafRef{Path: p, SongID: leaf.SongID, DurationHint: leaf.DurationHint})
	})
	return refs
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.LeafCount()
}

// Contains reports whether any leaf references the song.
func (t *Tree) Contains(id song.ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	found := false
	t.root.walk(nil, func(_ Path, leaf *Node) {
		if leaf.SongID == id {
			found = true
		}
	})
	return found
}

func (t *Tree) pointLocked(p Path) {
	t.cursor = p
	t.epoch++
}

// resolveLocked walks from the root. Must be called with a lock held.
func (t *Tree) resolveLocked(path Path) *Node {
	node := t.root
	for _, idx := range path {
		if node.Kind != KindGroup || idx < 0 || idx >= len(node.Children) {
			return nil
		}
		node = node.Children[idx]
	}
	return node
}

// nextLeafLocked finds the leaf after the cursor. Must be called with a lock held.
func (t *Tree) nextLeafLocked() (LeafRef, bool) {
	var next *LeafRef
	t.root.walk(nil, func(p Path, leaf *Node) {
		if next != nil {
			return
		}
		if t.cursor == nil || p.Compare(t.cursor) > 0 {
			next = &LeafRef{Path: p, SongID: leaf.SongID, DurationHint: leaf.DurationHint}
		}
	})
	if next == nil {
		return LeafRef{}, false
	}
	return *next, true
}

// firstLeafAfterSubtreeLocked finds the first leaf following the subtree at path.
// Must be called with a lock held.
func (t *Tree) firstLeafAfterSubtreeLocked(path Path) (Path, bool) {
	var next Path
	t.root.walk(nil, func(p Path, _ *Node) {
		if next != nil {
			return
		}
		if p.Compare(path) > 0 && !p.HasPrefix(path) {
			next = p
		}
	})
	return next, next != nil
}

func insertChild(group *Node, index int, node *Node) {
	group.Children = append(group.Children, nil)
	copy(group.Children[index+1:], group.Children[index:])
	group.Children[index] = node
}

func removeChild(group *Node, index int) {
	copy(group.Children[index:], group.Children[index+1:])
	group.Children[len(group.Children)-1] = nil
	group.Children = group.Children[:len(group.Children)-1]
}
