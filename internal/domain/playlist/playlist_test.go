package playlist

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

func TestPlaylist_SongIDs(t *testing.T) {
	tests := []struct {
		name     string
		root     *queue.Node
		expected []song.ID
	}{
		{
			name:     "nil root",
			root:     nil,
			expected: []song.ID{},
		},
		{
			name:     "empty group",
			root:     queue.NewGroup("empty"),
			expected: []song.ID{},
		},
		{
			name: "nested groups",
			root: queue.NewGroup("mix",
				queue.NewLeaf("song-1", 0),
				queue.NewGroup("album", queue.NewLeaf("song-2", 0), queue.NewLeaf("song-3", 0)),
			),
			expected: []song.ID{"song-1", "song-2", "song-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{Name: "test", Root: tt.root}
			assert.Equal(t, tt.expected, p.SongIDs())
		})
	}
}

func TestPlaylist_TotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		root     *queue.Node
		expected time.Duration
	}{
		{
			name:     "empty playlist",
			root:     queue.NewGroup(""),
			expected: 0,
		},
		{
			name: "multiple songs",
			root: queue.NewGroup("",
				queue.NewLeaf("song-1", 2*time.Minute),
				queue.NewGroup("", queue.NewLeaf("song-2", 3*time.Minute+30*time.Second)),
				queue.NewLeaf("song-3", 4*time.Minute),
			),
			expected: 9*time.Minute + 30*time.Second,
		},
		{
			name: "unknown durations count as zero",
			root: queue.NewGroup("",
				queue.NewLeaf("song-1", 0),
				queue.NewLeaf("song-2", time.Minute),
			),
			expected: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{Root: tt.root}
			assert.Equal(t, tt.expected, p.TotalDuration())
		})
	}
}

func TestNew(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	group := queue.NewGroup("", queue.NewLeaf("song-1", time.Minute))

	p, err := New("  Road trip ", group, now)
	require.NoError(t, err)
	assert.NotEqual(t, "", p.ID.String())
	assert.Equal(t, "Road trip", p.Name)
	assert.Equal(t, "Road trip", p.Root.Label)
	assert.Equal(t, now, p.SavedAt)
	assert.Equal(t, 1, p.Len())

	// Saved copy is independent from the queue node.
	group.Children[0].SongID = "changed"
	assert.Equal(t, []song.ID{"song-1"}, p.SongIDs())
}

func TestNew_WrapsLeaf(t *testing.T) {
	p, err := New("single", queue.NewLeaf("song-1", 0), time.Now())
	require.NoError(t, err)
	assert.True(t, p.Root.IsGroup())
	assert.Equal(t, []song.ID{"song-1"}, p.SongIDs())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(" ", queue.NewGroup(""), time.Now())
	assert.True(t, errors.Is(err, ErrEmptyName))

	_, err = New("name", nil, time.Now())
	assert.True(t, errors.Is(err, queue.ErrInvalidNode))
}

func TestPlaylist_Instantiate(t *testing.T) {
	p, err := New("mix", queue.NewGroup("mix", queue.NewLeaf("song-1", 0)), time.Now())
	require.NoError(t, err)

	a := p.Instantiate()
	b := p.Instantiate()
	assert.NotSame(t, a, b)
	assert.Equal(t, a.SongIDs(), b.SongIDs())

	a.Children = nil
	assert.Equal(t, 1, p.Len())
}
