package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

func TestCoordinator_NaturalCompletionFollowsDepthFirstOrder(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), queue.NewGroup("album", leaf("B"), leaf("C"))), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	h.waitPlayed(t, "A")

	h.player.finish()
	h.waitPlayed(t, "A", "B")
	h.player.finish()
	h.waitPlayed(t, "A", "B", "C")
	h.player.finish()

	require.Eventually(t, func() bool { return h.events.has(notification.TypeQueueExhausted) }, 2*time.Second, 2*time.Millisecond)
	st, err := h.c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StateIdle, st.Playback.State)
	assert.Equal(t, song.ID("C"), st.Current)
	assert.Equal(t, queue.Path{1, 1}, st.Cursor)
	assert.Equal(t, []song.ID{"A", "B", "C"}, h.player.playedIDs())
}

func TestCoordinator_RemovingPlayingSongDoesNotInterrupt(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), leaf("B"), leaf("C")), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	_, err := h.c.Remove(ctx, queue.Path{0})
	require.NoError(t, err)

	st, err := h.c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StatePlaying, st.Playback.State)
	assert.Equal(t, song.ID("A"), st.Playback.SongID)
	assert.Equal(t, song.ID("B"), st.Current)
	assert.Equal(t, song.ID("B"), st.Next)
	assert.True(t, st.Drifted)

	// B became current while A played; it plays next instead of being skipped
	h.player.finish()
	h.waitPlayed(t, "A", "B")

	snap, err := h.c.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Drifted)
	assert.Equal(t, song.ID("B"), snap.Playing)
}

func TestCoordinator_RemovingPlayingSongBeforeItsDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		consume bool
	}{
		{name: "keep played", consume: false},
		{name: "consume played", consume: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := start(t, Config{ConsumePlayed: tt.consume}, queue.NewGroup("", leaf("A"), leaf("A"), leaf("B")), nil)
			ctx := context.Background()

			require.NoError(t, h.c.PlayNow(ctx, nil))
			_, err := h.c.Remove(ctx, queue.Path{0})
			require.NoError(t, err)

			st, err := h.c.Status(ctx)
			require.NoError(t, err)
			assert.True(t, st.Drifted)
			assert.Equal(t, song.ID("A"), st.Current)
			assert.Equal(t, queue.Path{0}, st.Cursor)

			// The second A is a different leaf and still has to play
			h.player.finish()
			h.waitPlayed(t, "A", "A")

			snap, err := h.c.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, []song.ID{"A", "B"}, snap.Root.SongIDs())
			assert.Equal(t, queue.Path{0}, snap.Cursor)
			assert.False(t, snap.Drifted)
		})
	}
}

func TestCoordinator_RemovingLastPlayingSongExhausts(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), leaf("B")), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, queue.Path{1}))
	_, err := h.c.Remove(ctx, queue.Path{1})
	require.NoError(t, err)

	h.player.finish()
	require.Eventually(t, func() bool { return h.events.has(notification.TypeQueueExhausted) }, 2*time.Second, 2*time.Millisecond)
	assert.Equal(t, []song.ID{"B"}, h.player.playedIDs())
}

func TestCoordinator_MovedPlayingSongKeepsItsPlace(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), leaf("B"), leaf("C")), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	require.NoError(t, h.c.Move(ctx, queue.Path{0}, queue.Path{}, 1))

	st, err := h.c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Drifted)
	assert.Equal(t, queue.Path{1}, st.Cursor)

	h.player.finish()
	h.waitPlayed(t, "A", "C")
}

func TestCoordinator_LoadFailureSkipsToNext(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), leaf("B")), nil)

	require.NoError(t, h.c.PlayNow(context.Background(), nil))
	h.player.fail(false)

	h.waitPlayed(t, "A", "B")
	require.Eventually(t, func() bool { return h.events.has(notification.TypeCouldNotPlay) }, 2*time.Second, 2*time.Millisecond)
}

func TestCoordinator_DeviceErrorWaits(t *testing.T) {
	h := start(t, Config{AutoPlay: true}, queue.NewGroup("", leaf("A"), leaf("B")), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	h.player.fail(true)
	require.Eventually(t, func() bool { return h.events.has(notification.TypeDeviceError) }, 2*time.Second, 2*time.Millisecond)

	// No autoplay until the user starts playback again
	_, err := h.c.Enqueue(ctx, EnqueueRequest{Index: AppendIndex, Node: leaf("C"), Origin: filter.OriginUser})
	require.NoError(t, err)
	assert.Equal(t, []song.ID{"A"}, h.player.playedIDs())

	require.NoError(t, h.c.PlayNow(ctx, queue.Path{1}))
	h.waitPlayed(t, "A", "B")
}

func TestCoordinator_Skip(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), leaf("B"), leaf("C")), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, queue.Path{1}))
	require.NoError(t, h.c.SkipPrevious(ctx))
	err := h.c.SkipPrevious(ctx)
	assert.True(t, errors.Is(err, ErrAtStart))
	require.NoError(t, h.c.SkipNext(ctx))
	require.NoError(t, h.c.SkipNext(ctx))

	h.waitPlayed(t, "B", "A", "B", "C")

	require.NoError(t, h.c.SkipNext(ctx))
	require.Eventually(t, func() bool { return h.events.has(notification.TypeQueueExhausted) }, 2*time.Second, 2*time.Millisecond)
	st, err := h.c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StateIdle, st.Playback.State)
}

func TestCoordinator_StaleFinishIgnored(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A"), leaf("B"), leaf("C")), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	require.NoError(t, h.c.PlayNow(ctx, queue.Path{2}))
	h.player.events <- playback.Event{Type: playback.EventFinished, SongID: "A"}

	assert.Never(t, func() bool { return len(h.player.playedIDs()) > 2 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []song.ID{"A", "C"}, h.player.playedIDs())
}

func TestCoordinator_ConsumePlayed(t *testing.T) {
	h := start(t, Config{ConsumePlayed: true}, queue.NewGroup("", leaf("A"), queue.NewGroup("album", leaf("B"))), nil)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	h.player.finish()
	h.waitPlayed(t, "A", "B")

	snap, err := h.c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []song.ID{"B"}, snap.Root.SongIDs())
	assert.Equal(t, queue.Path{0, 0}, snap.Cursor)

	h.player.finish()
	require.Eventually(t, func() bool { return h.events.has(notification.TypeQueueExhausted) }, 2*time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, h.c.Tree().Len())
}

func TestCoordinator_AutoPlayOnEnqueue(t *testing.T) {
	h := start(t, Config{AutoPlay: true}, queue.NewGroup(""), nil)
	ctx := context.Background()

	res, err := h.c.Enqueue(ctx, EnqueueRequest{Index: AppendIndex, Node: leaf("A"), Origin: filter.OriginUser})
	require.NoError(t, err)
	assert.Equal(t, queue.Path{0}, res.Path)
	assert.Equal(t, 1, res.Added)
	h.waitPlayed(t, "A")

	_, err = h.c.Enqueue(ctx, EnqueueRequest{Index: AppendIndex, Node: leaf("B"), Origin: filter.OriginUser})
	require.NoError(t, err)
	h.waitPlayed(t, "A")

	// After the queue ran dry, new songs start right away
	h.player.finish()
	h.waitPlayed(t, "A", "B")
	h.player.finish()
	require.Eventually(t, func() bool { return h.events.has(notification.TypeQueueExhausted) }, 2*time.Second, 2*time.Millisecond)

	_, err = h.c.Enqueue(ctx, EnqueueRequest{Index: AppendIndex, Node: leaf("C"), Origin: filter.OriginUser})
	require.NoError(t, err)
	h.waitPlayed(t, "A", "B", "C")
}

func TestCoordinator_EnqueueFilters(t *testing.T) {
	catalog := newFakeCatalog(
		song.Metadata{ID: "short", Title: "Short", Duration: 2 * time.Minute},
		song.Metadata{ID: "long", Title: "Long", Duration: 20 * time.Minute},
	)
	h := start(t, Config{Filters: map[string]filter.Spec{
		"duration_limit_filter": {Enabled: true, Settings: map[string]any{"max_minutes": 10}},
		"duplicate_song_filter": {Enabled: true},
	}}, queue.NewGroup(""), catalog)
	ctx := context.Background()

	res, err := h.c.Enqueue(ctx, EnqueueRequest{Index: AppendIndex, Node: queue.NewLeaf("short", 0), Origin: filter.OriginUser})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	node, err := h.c.Tree().Resolve(queue.Path{0})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, node.DurationHint)

	tests := []struct {
		name string
		id   song.ID
		code string
	}{
		{name: "too long", id: "long", code: "duration_limit_exceeded"},
		{name: "duplicate", id: "short", code: "duplicate_song"},
		{name: "unknown song", id: "missing", code: "song_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.c.Enqueue(ctx, EnqueueRequest{Index: AppendIndex, Node: queue.NewLeaf(tt.id, 0), Origin: filter.OriginUser})
			rejected, ok := IsRejected(err)
			require.True(t, ok, "err = %v", err)
			assert.Equal(t, tt.code, rejected.Code)
			assert.Equal(t, tt.id, rejected.SongID)
		})
	}
	assert.Equal(t, 1, h.c.Tree().Len())

	// Playlists keep what passes and skip the duplicate filter
	group := queue.NewGroup("mix", queue.NewLeaf("short", 0), queue.NewLeaf("long", 0))
	res, err = h.c.Enqueue(ctx, EnqueueRequest{Index: 0, Node: group, Origin: filter.OriginPlaylist})
	require.NoError(t, err)
	assert.Equal(t, queue.Path{0}, res.Path)
	assert.Equal(t, 1, res.Added)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, song.ID("long"), res.Rejected[0].SongID)
	assert.Equal(t, 2, h.c.Tree().Len())
}

func TestCoordinator_EnqueueStructuralError(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A")), nil)

	_, err := h.c.Enqueue(context.Background(), EnqueueRequest{Parent: queue.Path{0}, Index: AppendIndex, Node: leaf("B")})
	assert.True(t, errors.Is(err, queue.ErrInvalidPath))
	_, err = h.c.Enqueue(context.Background(), EnqueueRequest{Index: 5, Node: leaf("B")})
	assert.True(t, errors.Is(err, queue.ErrIndexOutOfRange))
	assert.Equal(t, 1, h.c.Tree().Len())
}

func TestCoordinator_LookaheadFollowsCursor(t *testing.T) {
	catalog := newFakeCatalog()
	h := start(t, Config{Lookahead: true}, queue.NewGroup("", leaf("A"), leaf("B"), leaf("C")), catalog)
	ctx := context.Background()

	require.NoError(t, h.c.PlayNow(ctx, nil))
	prefetched, cancelled := catalog.traffic()
	assert.Equal(t, []song.ID{"B"}, prefetched)
	assert.Empty(t, cancelled)

	_, err := h.c.Remove(ctx, queue.Path{1})
	require.NoError(t, err)
	prefetched, cancelled = catalog.traffic()
	assert.Equal(t, []song.ID{"B", "C"}, prefetched)
	assert.Equal(t, []song.ID{"B"}, cancelled)

	// Playing the prefetched song hands it over without cancelling it
	h.player.finish()
	h.waitPlayed(t, "A", "C")
	_, cancelled = catalog.traffic()
	assert.Equal(t, []song.ID{"B"}, cancelled)
}

func TestCoordinator_Transport(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", leaf("A")), nil)
	ctx := context.Background()

	err := h.c.Pause(ctx)
	assert.True(t, errors.Is(err, playback.ErrInvalidTransition))

	require.NoError(t, h.c.PlayNow(ctx, nil))
	require.NoError(t, h.c.Pause(ctx))
	require.NoError(t, h.c.Seek(ctx, time.Second))
	require.NoError(t, h.c.Resume(ctx))

	v, err := h.c.SetVolume(ctx, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	require.NoError(t, h.c.Stop(ctx))
	st, err := h.c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, playback.StateIdle, st.Playback.State)
	assert.Equal(t, song.ID("A"), st.Current)
}

func TestCoordinator_PlayNowErrors(t *testing.T) {
	h := start(t, Config{}, queue.NewGroup("", queue.NewGroup("empty")), nil)
	ctx := context.Background()

	assert.True(t, errors.Is(h.c.PlayNow(ctx, queue.Path{0}), ErrNothingToPlay))
	assert.True(t, errors.Is(h.c.PlayNow(ctx, queue.Path{3}), queue.ErrInvalidPath))
	assert.True(t, errors.Is(h.c.PlayNow(ctx, nil), ErrNothingToPlay))
}

func TestCoordinator_NotRunning(t *testing.T) {
	tree := queue.NewTree()
	c, err := New(Config{}, Deps{Tree: tree, Player: newFakePlayer()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(c.Pause(ctx), context.DeadlineExceeded))

	runCtx, stop := context.WithCancel(context.Background())
	go func() { _ = c.Run(runCtx) }()
	stop()
	<-c.Done()
	assert.True(t, errors.Is(c.Pause(context.Background()), ErrNotRunning))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)

	_, err = New(Config{Filters: map[string]filter.Spec{"nope": {Enabled: true}}}, Deps{Player: newFakePlayer()})
	assert.Error(t, err)
}
