// Package coordinator runs the control loop that binds the queue to playback:
// current changed, ensure loaded, play, and on finish advance.
package coordinator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

// Config holds coordinator configuration.
type Config struct {
	AutoPlay      bool // Start playing when songs arrive while nothing plays
	ConsumePlayed bool // Drop songs from the queue once played
	Lookahead     bool // Prefetch the song that plays next
	CommandBuffer int
	Filters       map[string]filter.Spec
}

// Deps are the collaborators the coordinator drives. Player is required.
type Deps struct {
	Tree      *queue.Tree // A new empty queue when nil
	Player    Player
	Catalog   Catalog
	Cache     AudioCache
	Playlists PlaylistStore
	Notifier  *notification.Manager
}

// Coordinator owns the queue and serializes every mutation and advance
// decision through a single goroutine.
type Coordinator struct {
	tree      *queue.Tree
	player    Player
	catalog   Catalog
	cache     AudioCache
	playlists PlaylistStore
	notifier  *notification.Manager
	filters   *filter.Chain
	config    Config

	// Owned by the loop goroutine
	playing    song.ID // Song handed to the player, empty when none
	playingAt  uint64  // Cursor epoch of the playing leaf
	drifted    bool    // Cursor moved away from the playing leaf
	stopped    bool    // Stopped by the user or the device; no autoplay
	prefetched song.ID // Song warmed by the lookahead

	cmdCh   chan command
	running atomic.Bool
	done    chan struct{}
	now     func() time.Time
}

type command struct {
	fn    func() error
	errCh chan error
}

// New creates a coordinator. Call Run to start the loop.
func New(config Config, deps Deps) (*Coordinator, error) {
	if deps.Player == nil {
		return nil, errors.New("player is required")
	}
	if config.CommandBuffer <= 0 {
		config.CommandBuffer = 16
	}
	tree := deps.Tree
	if tree == nil {
		tree = queue.NewTree()
	}

	filterDeps := filter.Deps{Queue: queueView{tree: tree}}
	if deps.Catalog != nil {
		filterDeps.Catalog = deps.Catalog
	}
	chain, err := filter.Build(config.Filters, filterDeps)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter chain")
	}

	return &Coordinator{
		tree:      tree,
		player:    deps.Player,
		catalog:   deps.Catalog,
		cache:     deps.Cache,
		playlists: deps.Playlists,
		notifier:  deps.Notifier,
		filters:   chain,
		config:    config,
		cmdCh:     make(chan command, config.CommandBuffer),
		done:      make(chan struct{}),
		now:       time.Now,
	}, nil
}

// Tree returns the queue. Reads are safe from any goroutine; mutate it only
// through the coordinator.
func (c *Coordinator) Tree() *queue.Tree {
	return c.tree
}

// Run processes commands and player events until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator is already running")
	}
	defer close(c.done)

	zlog.Info().Msg("coordinator started")
	for !c.loop(ctx) {
		// Restart loop after a panic
		zlog.Info().Msg("restarting coordinator loop")
	}
	zlog.Info().Msg("coordinator stopped")
	return nil
}

// Done is closed once Run returns.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// loop returns true when ctx is done and false after a recovered panic.
func (c *Coordinator) loop(ctx context.Context) (finished bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("coordinator loop panicked: %v", r)
			finished = false
		}
	}()

	events := c.player.Events()
	for {
		select {
		case <-ctx.Done():
			return true
		case cmd := <-c.cmdCh:
			c.exec(cmd)
		case ev := <-events:
			c.handleEvent(ev)
		}
	}
}

func (c *Coordinator) exec(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("command panicked: %v", r)
			cmd.errCh <- errors.Newf("command panicked: %v", r)
		}
	}()
	cmd.errCh <- cmd.fn()
}

// do runs fn on the loop goroutine and waits for its result.
func (c *Coordinator) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, errCh: make(chan error, 1)}
	select {
	case c.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}

	select {
	case err := <-cmd.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}
}

func (c *Coordinator) handleEvent(ev playback.Event) {
	switch ev.Type {
	case playback.EventFinished:
		if ev.SongID != c.playing {
			zlog.Debug().Msgf("Ignoring finish of stale song %s", ev.SongID)
			return
		}
		zlog.Info().Msgf("finished %s", ev.SongID)
		c.notifyPlayback(notification.TypePlaybackState, ev, "")
		if err := c.proceed(true); err != nil {
			zlog.Warn().Err(err).Msg("failed to start next song")
		}

	case playback.EventLoadFailed:
		if ev.SongID != c.playing {
			return
		}
		msg := "could not play " + ev.SongID.String()
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		if ev.Err != nil && ev.Err.Device {
			zlog.Error().Msgf("audio device failed: %s", msg)
			c.halt(true)
			c.notifyPlayback(notification.TypeDeviceError, ev, msg)
			return
		}
		zlog.Warn().Msgf("skipping %s: %s", ev.SongID, msg)
		c.notify(notification.Notification{Type: notification.TypeCouldNotPlay, SongID: ev.SongID, Message: msg})
		if err := c.proceed(false); err != nil {
			zlog.Warn().Err(err).Msg("failed to start next song")
		}

	case playback.EventStateChanged:
		c.notifyPlayback(notification.TypePlaybackState, ev, "")

	case playback.EventProgress:
		c.notifyPlayback(notification.TypeProgress, ev, "")
	}
}

// proceed leaves the playing song and starts whatever follows it.
// With consume set and the consume policy on, the played leaf is dropped.
func (c *Coordinator) proceed(consume bool) error {
	var (
		next song.ID
		ok   bool
	)
	switch {
	case consume && c.config.ConsumePlayed && c.playing != "":
		c.dropPlayed()
		next, ok = c.tree.Current()
	case c.drifted:
		// The cursor already names the song to play next
		next, ok = c.tree.Current()
	default:
		next, ok = c.tree.Advance()
	}
	if !ok {
		c.exhaust()
		return nil
	}
	return c.play(next)
}

// play hands id to the player and makes it the playing song.
func (c *Coordinator) play(id song.ID) error {
	if id == c.prefetched {
		c.prefetched = ""
	}
	if err := c.player.Play(id); err != nil {
		return errors.Wrapf(err, "failed to play %s", id)
	}
	c.playing = id
	c.playingAt = c.tree.CursorEpoch()
	c.drifted = false
	c.stopped = false
	c.updateLookahead()

	zlog.Info().Msgf("now playing %s", id)
	c.notify(notification.Notification{Type: notification.TypeSongStarted, SongID: id, State: playback.StateLoading.String()})
	return nil
}

// dropPlayed removes the leaf of the playing song. Once the cursor has
// drifted that leaf is already gone.
func (c *Coordinator) dropPlayed() {
	if c.drifted {
		return
	}
	path := c.tree.CurrentPath()
	if path == nil {
		return
	}
	if _, err := c.tree.Remove(path); err != nil {
		zlog.Warn().Err(err).Msgf("failed to drop played song %s", c.playing)
		return
	}
	c.notify(queueChanged())
}

// exhaust stops the player once nothing is left to play.
func (c *Coordinator) exhaust() {
	c.halt(false)
	zlog.Info().Msg("queue exhausted")
	c.notify(notification.Notification{Type: notification.TypeQueueExhausted, Message: "queue exhausted"})
}

// halt forgets the playing song. A halt by the user or the device also
// suppresses autoplay until playback is started again.
func (c *Coordinator) halt(stopped bool) {
	c.player.Stop()
	c.playing = ""
	c.drifted = false
	c.stopped = stopped
	c.updateLookahead()
}

// afterMutation re-derives loop state after the tree changed.
func (c *Coordinator) afterMutation() {
	c.updateDrift()
	c.updateLookahead()
	c.notify(queueChanged())
}

func (c *Coordinator) updateDrift() {
	if c.playing == "" {
		c.drifted = false
		return
	}
	// Compared by leaf, not song: the same song may follow the removed one
	cur, ok := c.tree.Current()
	c.drifted = !ok || c.tree.CursorEpoch() != c.playingAt
	if c.drifted {
		zlog.Debug().Msgf("cursor left %s, current is %q", c.playing, cur)
	}
}

// upcoming returns the song that plays after the current one finishes.
func (c *Coordinator) upcoming() song.ID {
	if c.playing == "" {
		return ""
	}
	if c.drifted {
		id, _ := c.tree.Current()
		return id
	}
	ref, ok := c.tree.PeekNext()
	if !ok {
		return ""
	}
	return ref.SongID
}

func (c *Coordinator) updateLookahead() {
	if !c.config.Lookahead || c.catalog == nil {
		return
	}
	next := c.upcoming()
	if next == c.playing {
		next = ""
	}
	if next == c.prefetched {
		return
	}
	if c.prefetched != "" && c.catalog.Cancel(c.prefetched) {
		zlog.Debug().Msgf("Cancelled prefetch of %s", c.prefetched)
	}
	c.prefetched = next
	if next != "" {
		zlog.Debug().Msgf("Prefetching %s", next)
		c.catalog.Prefetch(next)
	}
}

func (c *Coordinator) notify(n notification.Notification) {
	if c.notifier == nil {
		return
	}
	c.notifier.Broadcast(n)
}

func queueChanged() notification.Notification {
	return notification.Notification{Type: notification.TypeQueueChanged}
}

func (c *Coordinator) notifyPlayback(typ notification.Type, ev playback.Event, msg string) {
	id := ev.Status.SongID
	if id == "" {
		id = ev.SongID
	}
	c.notify(notification.Notification{
		Type:     typ,
		SongID:   id,
		State:    ev.Status.State.String(),
		Position: ev.Status.Position,
		Duration: ev.Status.Duration,
		Message:  msg,
	})
}
