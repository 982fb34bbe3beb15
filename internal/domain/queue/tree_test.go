package queue

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/domain/song"
)

func leaf(id string) *Node {
	return NewLeaf(song.ID(id), 3*time.Minute)
}

func songIDs(t *Tree) []song.ID {
	refs := t.Leaves()
	ids := make([]song.ID, len(refs))
	for i, r := range refs {
		ids[i] = r.SongID
	}
	return ids
}

// nestedTree builds [A, [B, C], [], D].
func nestedTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewTreeFromRoot(NewGroup("root",
		leaf("A"),
		NewGroup("album", leaf("B"), leaf("C")),
		NewGroup("empty"),
		leaf("D"),
	))
	require.NoError(t, err)
	return tree
}

func TestTree_Insert(t *testing.T) {
	tests := []struct {
		name     string
		parent   Path
		index    int
		expected []song.ID
	}{
		{name: "front of root", parent: Path{}, index: 0, expected: []song.ID{"X", "A", "B", "C", "D"}},
		{name: "end of root", parent: Path{}, index: 4, expected: []song.ID{"A", "B", "C", "D", "X"}},
		{name: "middle of album", parent: Path{1}, index: 1, expected: []song.ID{"A", "B", "X", "C", "D"}},
		{name: "end of album", parent: Path{1}, index: 2, expected: []song.ID{"A", "B", "C", "X", "D"}},
		{name: "into empty group", parent: Path{2}, index: 0, expected: []song.ID{"A", "B", "C", "X", "D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			require.NoError(t, tree.Insert(tt.parent, tt.index, leaf("X")))
			assert.Equal(t, tt.expected, songIDs(tree))
		})
	}
}

func TestTree_Insert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		parent Path
		index  int
		node   *Node
		err    error
	}{
		{name: "parent is a leaf", parent: Path{0}, index: 0, node: leaf("X"), err: ErrInvalidPath},
		{name: "parent does not exist", parent: Path{9}, index: 0, node: leaf("X"), err: ErrInvalidPath},
		{name: "negative index", parent: Path{}, index: -1, node: leaf("X"), err: ErrIndexOutOfRange},
		{name: "index past end", parent: Path{1}, index: 3, node: leaf("X"), err: ErrIndexOutOfRange},
		{name: "leaf without song", parent: Path{}, index: 0, node: NewLeaf("", 0), err: ErrInvalidNode},
		{name: "nil node", parent: Path{}, index: 0, node: nil, err: ErrInvalidNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			before := tree.Export()

			err := tree.Insert(tt.parent, tt.index, tt.node)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
			assert.True(t, IsStructural(err))
			assert.Equal(t, before, tree.Export())
		})
	}
}

func TestTree_Insert_ShiftsCursor(t *testing.T) {
	tree := nestedTree(t)
	_, err := tree.SetCursor(Path{1, 1}) // C
	require.NoError(t, err)

	require.NoError(t, tree.Insert(Path{1}, 0, leaf("X")))
	assert.Equal(t, Path{1, 2}, tree.CurrentPath())

	require.NoError(t, tree.Insert(Path{}, 0, leaf("Y")))
	assert.Equal(t, Path{2, 2}, tree.CurrentPath())

	current, ok := tree.Current()
	assert.True(t, ok)
	assert.Equal(t, song.ID("C"), current)
}

func TestTree_Remove_CursorAdvancesToNext(t *testing.T) {
	tree, err := NewTreeFromRoot(NewGroup("", leaf("A"), leaf("B"), leaf("C")))
	require.NoError(t, err)
	_, err = tree.SetCursor(Path{1})
	require.NoError(t, err)

	removed, err := tree.Remove(Path{1})
	require.NoError(t, err)
	assert.Equal(t, song.ID("B"), removed.SongID)

	current, ok := tree.Current()
	assert.True(t, ok)
	assert.Equal(t, song.ID("C"), current)
	assert.Equal(t, Path{1}, tree.CurrentPath())
}

func TestTree_Remove_Cursor(t *testing.T) {
	tests := []struct {
		name        string
		cursor      Path
		remove      Path
		wantCurrent song.ID
		wantOK      bool
	}{
		{name: "group holding the cursor", cursor: Path{1, 0}, remove: Path{1}, wantCurrent: "D", wantOK: true},
		{name: "last leaf clears cursor", cursor: Path{3}, remove: Path{3}, wantOK: false},
		{name: "sibling before cursor", cursor: Path{1, 1}, remove: Path{0}, wantCurrent: "C", wantOK: true},
		{name: "leaf after cursor", cursor: Path{0}, remove: Path{3}, wantCurrent: "A", wantOK: true},
		{name: "inner leaf moves to sibling", cursor: Path{1, 0}, remove: Path{1, 0}, wantCurrent: "C", wantOK: true},
		{name: "last in album moves past empty group", cursor: Path{1, 1}, remove: Path{1, 1}, wantCurrent: "D", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			_, err := tree.SetCursor(tt.cursor)
			require.NoError(t, err)

			_, err = tree.Remove(tt.remove)
			require.NoError(t, err)

			current, ok := tree.Current()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCurrent, current)
			if !tt.wantOK {
				assert.Nil(t, tree.CurrentPath())
			}
		})
	}
}

func TestTree_Remove_Errors(t *testing.T) {
	tree := nestedTree(t)

	_, err := tree.Remove(Path{})
	assert.True(t, errors.Is(err, ErrInvalidPath))

	_, err = tree.Remove(Path{1, 5})
	assert.True(t, errors.Is(err, ErrInvalidPath))

	assert.Equal(t, []song.ID{"A", "B", "C", "D"}, songIDs(tree))
}

func TestTree_Move(t *testing.T) {
	tests := []struct {
		name     string
		from     Path
		toParent Path
		toIndex  int
		expected []song.ID
	}{
		{name: "leaf to end of root", from: Path{0}, toParent: Path{}, toIndex: 3, expected: []song.ID{"B", "C", "D", "A"}},
		{name: "leaf into album", from: Path{3}, toParent: Path{1}, toIndex: 1, expected: []song.ID{"A", "B", "D", "C"}},
		{name: "leaf out of album", from: Path{1, 0}, toParent: Path{}, toIndex: 0, expected: []song.ID{"B", "A", "C", "D"}},
		{name: "reorder within album", from: Path{1, 1}, toParent: Path{1}, toIndex: 0, expected: []song.ID{"A", "C", "B", "D"}},
		{name: "group into later group", from: Path{1}, toParent: Path{2}, toIndex: 0, expected: []song.ID{"A", "B", "C", "D"}},
		{name: "group after last leaf", from: Path{1}, toParent: Path{}, toIndex: 3, expected: []song.ID{"A", "D", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			require.NoError(t, tree.Move(tt.from, tt.toParent, tt.toIndex))
			assert.Equal(t, tt.expected, songIDs(tree))
		})
	}
}

func TestTree_Move_GroupIntoLaterGroupNests(t *testing.T) {
	tree := nestedTree(t)
	require.NoError(t, tree.Move(Path{1}, Path{2}, 0))

	// [A, empty[album[B, C]], D]
	node, err := tree.Resolve(Path{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, song.ID("C"), node.SongID)
}

func TestTree_Move_CyclicFails(t *testing.T) {
	tree, err := NewTreeFromRoot(NewGroup("",
		NewGroup("outer", leaf("A"), NewGroup("inner", leaf("B"))),
		leaf("C"),
	))
	require.NoError(t, err)
	_, err = tree.SetCursor(Path{0, 1, 0})
	require.NoError(t, err)
	before := tree.Export()

	for _, dest := range []Path{{0}, {0, 1}} {
		err := tree.Move(Path{0}, dest, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCyclicMove), "dest %s: %v", dest, err)
		assert.Equal(t, before, tree.Export())
	}
}

func TestTree_Move_Errors(t *testing.T) {
	tests := []struct {
		name     string
		from     Path
		toParent Path
		toIndex  int
		err      error
	}{
		{name: "root", from: Path{}, toParent: Path{1}, toIndex: 0, err: ErrInvalidPath},
		{name: "missing source", from: Path{7}, toParent: Path{}, toIndex: 0, err: ErrInvalidPath},
		{name: "destination is leaf", from: Path{0}, toParent: Path{3}, toIndex: 0, err: ErrInvalidPath},
		{name: "index past end of same parent", from: Path{0}, toParent: Path{}, toIndex: 4, err: ErrIndexOutOfRange},
		{name: "index past end of other group", from: Path{0}, toParent: Path{1}, toIndex: 3, err: ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			before := tree.Export()

			err := tree.Move(tt.from, tt.toParent, tt.toIndex)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
			assert.Equal(t, before, tree.Export())
		})
	}
}

func TestTree_Move_CursorFollows(t *testing.T) {
	tests := []struct {
		name     string
		cursor   Path
		from     Path
		toParent Path
		toIndex  int
		expected Path
	}{
		{name: "moved leaf is current", cursor: Path{0}, from: Path{0}, toParent: Path{1}, toIndex: 2, expected: Path{0, 2}},
		{name: "moved group holds current", cursor: Path{1, 1}, from: Path{1}, toParent: Path{}, toIndex: 3, expected: Path{3, 1}},
		{name: "unrelated move shifts current", cursor: Path{3}, from: Path{0}, toParent: Path{1}, toIndex: 0, expected: Path{2}},
		{name: "insert before current", cursor: Path{1, 0}, from: Path{3}, toParent: Path{1}, toIndex: 0, expected: Path{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			want, err := tree.SetCursor(tt.cursor)
			require.NoError(t, err)

			require.NoError(t, tree.Move(tt.from, tt.toParent, tt.toIndex))

			assert.Equal(t, tt.expected, tree.CurrentPath())
			current, ok := tree.Current()
			assert.True(t, ok)
			assert.Equal(t, want, current)
		})
	}
}

func TestTree_Advance(t *testing.T) {
	tree := nestedTree(t)

	var got []song.ID
	for {
		id, ok := tree.Advance()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []song.ID{"A", "B", "C", "D"}, got)

	// Idempotent at end of queue.
	_, ok := tree.Advance()
	assert.False(t, ok)
	current, ok := tree.Current()
	assert.True(t, ok)
	assert.Equal(t, song.ID("D"), current)
	assert.Equal(t, Path{3}, tree.CurrentPath())
}

func TestTree_Advance_SingleLeaf(t *testing.T) {
	tree, err := NewTreeFromRoot(NewGroup("", leaf("A")))
	require.NoError(t, err)
	_, err = tree.SetCursor(Path{0})
	require.NoError(t, err)

	id, ok := tree.Advance()
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, Path{0}, tree.CurrentPath())
}

func TestTree_Advance_EmptyQueue(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.Append(Path{}, NewGroup("empty")))

	_, ok := tree.Advance()
	assert.False(t, ok)
	assert.Nil(t, tree.CurrentPath())
}

func TestTree_Retreat(t *testing.T) {
	tree := nestedTree(t)
	_, err := tree.SetCursor(Path{3})
	require.NoError(t, err)

	var got []song.ID
	for {
		id, ok := tree.Retreat()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []song.ID{"C", "B", "A"}, got)
	assert.Equal(t, Path{0}, tree.CurrentPath())

	empty := NewTree()
	_, ok := empty.Retreat()
	assert.False(t, ok)
}

func TestTree_PeekNext(t *testing.T) {
	tree := nestedTree(t)
	_, err := tree.SetCursor(Path{1, 1})
	require.NoError(t, err)

	next, ok := tree.PeekNext()
	require.True(t, ok)
	assert.Equal(t, song.ID("D"), next.SongID)
	assert.Equal(t, Path{3}, next.Path)
	assert.Equal(t, Path{1, 1}, tree.CurrentPath())
}

func TestTree_NestedCompletionOrder(t *testing.T) {
	tree, err := NewTreeFromRoot(NewGroup("",
		leaf("A"),
		NewGroup("", leaf("B"), leaf("C")),
	))
	require.NoError(t, err)

	first, ok := tree.First()
	require.True(t, ok)
	assert.Equal(t, song.ID("A"), first)

	next, ok := tree.Advance()
	assert.True(t, ok)
	assert.Equal(t, song.ID("B"), next)
	next, ok = tree.Advance()
	assert.True(t, ok)
	assert.Equal(t, song.ID("C"), next)
	_, ok = tree.Advance()
	assert.False(t, ok)
}

func TestTree_SetCursor(t *testing.T) {
	tree := nestedTree(t)

	_, err := tree.SetCursor(Path{1})
	assert.True(t, errors.Is(err, ErrInvalidPath))

	id, err := tree.SetCursor(Path{1, 0})
	require.NoError(t, err)
	assert.Equal(t, song.ID("B"), id)

	tree.ClearCursor()
	_, ok := tree.Current()
	assert.False(t, ok)
}

func TestTree_SnapshotIsIndependent(t *testing.T) {
	tree := nestedTree(t)
	root, _ := tree.Snapshot()

	root.Children[0].SongID = "Z"
	root.Children = root.Children[:1]

	assert.Equal(t, []song.ID{"A", "B", "C", "D"}, songIDs(tree))
	assert.Equal(t, 4, tree.Len())
	assert.True(t, tree.Contains("C"))
	assert.False(t, tree.Contains("Z"))
}

func TestTree_Insert_RejectsNodeAlreadyInTree(t *testing.T) {
	tree := NewTree()
	n := leaf("A")
	require.NoError(t, tree.Append(Path{}, n))

	err := tree.Append(Path{}, n)
	assert.True(t, errors.Is(err, ErrInvalidNode))
	assert.Equal(t, 1, tree.Len())
}

func TestTree_ChildCount(t *testing.T) {
	tree := nestedTree(t)

	tests := []struct {
		path     Path
		expected int
		wantErr  bool
	}{
		{path: Path{}, expected: 4},
		{path: Path{1}, expected: 2},
		{path: Path{2}, expected: 0},
		{path: Path{0}, wantErr: true},
		{path: Path{7}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path.String(), func(t *testing.T) {
			n, err := tree.ChildCount(tt.path)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidPath))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestTree_CursorEpoch(t *testing.T) {
	tests := []struct {
		name    string
		op      func(t *testing.T, tree *Tree)
		changed bool
	}{
		{name: "insert before the cursor", op: func(t *testing.T, tree *Tree) {
			require.NoError(t, tree.Insert(Path{}, 0, leaf("C")))
		}, changed: false},
		{name: "remove before the cursor", op: func(t *testing.T, tree *Tree) {
			_, err := tree.Remove(Path{0})
			require.NoError(t, err)
		}, changed: false},
		{name: "move the cursor's group", op: func(t *testing.T, tree *Tree) {
			require.NoError(t, tree.Move(Path{1}, Path{}, 3))
		}, changed: false},
		{name: "remove the current leaf", op: func(t *testing.T, tree *Tree) {
			_, err := tree.Remove(Path{1, 1})
			require.NoError(t, err)
		}, changed: true},
		{name: "advance", op: func(t *testing.T, tree *Tree) {
			_, ok := tree.Advance()
			require.True(t, ok)
		}, changed: true},
		{name: "retreat", op: func(t *testing.T, tree *Tree) {
			_, ok := tree.Retreat()
			require.True(t, ok)
		}, changed: true},
		{name: "first", op: func(t *testing.T, tree *Tree) {
			_, ok := tree.First()
			require.True(t, ok)
		}, changed: true},
		{name: "clear cursor", op: func(t *testing.T, tree *Tree) { tree.ClearCursor() }, changed: true},
		{name: "clear", op: func(t *testing.T, tree *Tree) { tree.Clear() }, changed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := nestedTree(t)
			_, err := tree.SetCursor(Path{1, 1})
			require.NoError(t, err)
			before := tree.CursorEpoch()

			tt.op(t, tree)
			assert.Equal(t, tt.changed, tree.CursorEpoch() != before)
		})
	}
}

func TestTree_CursorEpoch_DuplicateSong(t *testing.T) {
	tree, err := NewTreeFromRoot(NewGroup("root", leaf("A"), leaf("A"), leaf("B")))
	require.NoError(t, err)
	_, err = tree.SetCursor(Path{0})
	require.NoError(t, err)
	before := tree.CursorEpoch()

	_, err = tree.Remove(Path{0})
	require.NoError(t, err)
	id, ok := tree.Current()
	require.True(t, ok)
	assert.Equal(t, song.ID("A"), id)
	assert.NotEqual(t, before, tree.CursorEpoch())
}
