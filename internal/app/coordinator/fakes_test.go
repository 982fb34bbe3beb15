package coordinator

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/app/cache"
	"github.com/osa030/queuebox/internal/app/fetch"
	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/playlist"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

// fakePlayer records what it is asked to play; tests drive its events.
type fakePlayer struct {
	mu     sync.Mutex
	state  playback.State
	songID song.ID
	played []song.ID
	volume float64
	events chan playback.Event
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan playback.Event, 16)}
}

func (p *fakePlayer) Play(id song.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, id)
	p.state = playback.StatePlaying
	p.songID = id
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != playback.StatePlaying {
		return errors.Wrap(playback.ErrInvalidTransition, "pause")
	}
	p.state = playback.StatePaused
	return nil
}

func (p *fakePlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != playback.StatePaused {
		return errors.Wrap(playback.ErrInvalidTransition, "resume")
	}
	p.state = playback.StatePlaying
	return nil
}

func (p *fakePlayer) Seek(time.Duration) error {
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = playback.StateIdle
	p.songID = ""
}

func (p *fakePlayer) SetVolume(v float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = min(max(v, 0), 1)
	return p.volume
}

func (p *fakePlayer) Status() playback.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return playback.Status{State: p.state, SongID: p.songID, Volume: p.volume}
}

func (p *fakePlayer) Events() <-chan playback.Event {
	return p.events
}

func (p *fakePlayer) playedIDs() []song.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.played)
}

// finish ends the current song naturally.
func (p *fakePlayer) finish() {
	p.mu.Lock()
	id := p.songID
	p.state = playback.StateFinished
	st := playback.Status{State: p.state, SongID: id}
	p.mu.Unlock()
	p.events <- playback.Event{Type: playback.EventFinished, SongID: id, Status: st}
}

// fail reports the current song as unplayable.
func (p *fakePlayer) fail(device bool) {
	p.mu.Lock()
	id := p.songID
	p.state = playback.StateIdle
	p.songID = ""
	p.mu.Unlock()
	p.events <- playback.Event{
		Type:   playback.EventLoadFailed,
		SongID: id,
		Err:    &playback.PlaybackError{SongID: id, Device: device, Err: errors.New("boom")},
	}
}

// fakeCatalog serves metadata and records prefetch traffic.
type fakeCatalog struct {
	mu         sync.Mutex
	meta       map[song.ID]song.Metadata
	prefetched []song.ID
	cancelled  []song.ID
}

func newFakeCatalog(songs ...song.Metadata) *fakeCatalog {
	c := &fakeCatalog{meta: make(map[song.ID]song.Metadata)}
	for _, m := range songs {
		c.meta[m.ID] = m
	}
	return c
}

func (c *fakeCatalog) Metadata(_ context.Context, id song.ID) (song.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.meta[id]
	if !ok {
		return song.Metadata{}, &fetch.FetchError{SongID: id, Kind: fetch.KindNotFound, Err: song.ErrNotFound}
	}
	return m, nil
}

func (c *fakeCatalog) Prefetch(id song.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefetched = append(c.prefetched, id)
}

func (c *fakeCatalog) Cancel(id song.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, id)
	return true
}

func (c *fakeCatalog) traffic() (prefetched, cancelled []song.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.prefetched), slices.Clone(c.cancelled)
}

// memoryPlaylists is an in-memory PlaylistStore.
type memoryPlaylists struct {
	mu    sync.Mutex
	items map[uuid.UUID]*playlist.Playlist
}

func newMemoryPlaylists() *memoryPlaylists {
	return &memoryPlaylists{items: make(map[uuid.UUID]*playlist.Playlist)}
}

func (s *memoryPlaylists) Save(p *playlist.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
	return nil
}

func (s *memoryPlaylists) Load(id uuid.UUID) (*playlist.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, errors.Wrapf(ErrPlaylistNotFound, "%s", id)
	}
	return p, nil
}

func (s *memoryPlaylists) List() ([]*playlist.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*playlist.Playlist, 0, len(s.items))
	for _, p := range s.items {
		list = append(list, p)
	}
	return list, nil
}

func (s *memoryPlaylists) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errors.Wrapf(ErrPlaylistNotFound, "%s", id)
	}
	delete(s.items, id)
	return nil
}

// recorder collects broadcast notifications.
type recorder struct {
	mu   sync.Mutex
	seen []notification.Notification
}

func (r *recorder) Send(n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, *n)
	return nil
}

func (r *recorder) has(typ notification.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.ContainsFunc(r.seen, func(n notification.Notification) bool { return n.Type == typ })
}

type harness struct {
	c       *Coordinator
	player  *fakePlayer
	catalog *fakeCatalog
	events  *recorder
}

func leaf(id string) *queue.Node {
	return queue.NewLeaf(song.ID(id), 3*time.Minute)
}

// start runs a coordinator over root until the test ends.
func start(t *testing.T, config Config, root *queue.Node, catalog *fakeCatalog) *harness {
	t.Helper()
	tree, err := queue.NewTreeFromRoot(root)
	require.NoError(t, err)

	h := &harness{player: newFakePlayer(), catalog: catalog, events: &recorder{}}
	notifier := notification.NewManager()
	notifier.Subscribe(h.events)

	deps := Deps{
		Tree:      tree,
		Player:    h.player,
		Cache:     cache.New(0),
		Playlists: newMemoryPlaylists(),
		Notifier:  notifier,
	}
	if catalog != nil {
		deps.Catalog = catalog
	}
	h.c, err = New(config, deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.c.Done()
	})
	return h
}

func (h *harness) waitPlayed(t *testing.T, expected ...song.ID) {
	t.Helper()
	require.Eventually(t, func() bool {
		return slices.Equal(h.player.playedIDs(), expected)
	}, 2*time.Second, 2*time.Millisecond, "played %v", h.player.playedIDs())
}
