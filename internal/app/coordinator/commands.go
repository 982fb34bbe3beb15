package coordinator

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/app/cache"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

// Snapshot is a read-only copy of the queue.
type Snapshot struct {
	Root    *queue.Node
	Cursor  queue.Path // nil when nothing is current
	Playing song.ID    // Song held by the player, may differ from the cursor
	Drifted bool
}

// Status combines the player state with the queue position.
type Status struct {
	Playback playback.Status
	Current  song.ID
	Cursor   queue.Path
	Next     song.ID // Song that plays after the current one
	Drifted  bool
	Length   int // Leaves in the queue
	Cache    cache.Stats
}

// Move relocates the node at from to be the toIndex-th child of toParent.
func (c *Coordinator) Move(ctx context.Context, from, toParent queue.Path, toIndex int) error {
	return c.do(ctx, func() error {
		if err := c.tree.Move(from, toParent, toIndex); err != nil {
			return err
		}
		zlog.Debug().Msgf("moved %s to %s[%d]", from, toParent, toIndex)
		c.afterMutation()
		return nil
	})
}

// Remove detaches the node at path. Removing the playing song does not stop it.
func (c *Coordinator) Remove(ctx context.Context, path queue.Path) (*queue.Node, error) {
	var removed *queue.Node
	err := c.do(ctx, func() error {
		n, err := c.tree.Remove(path)
		if err != nil {
			return err
		}
		removed = n
		zlog.Debug().Msgf("removed %s (%d songs)", path, n.LeafCount())
		c.afterMutation()
		return nil
	})
	return removed, err
}

// PlayNow moves the cursor to the first leaf at or under path and plays it.
// An empty path plays the current song, or the first one when none is current.
func (c *Coordinator) PlayNow(ctx context.Context, path queue.Path) error {
	return c.do(ctx, func() error {
		if len(path) == 0 {
			if id, ok := c.tree.Current(); ok {
				return c.play(id)
			}
		}

		ref, ok := lo.Find(c.tree.Leaves(), func(ref queue.LeafRef) bool {
			return ref.Path.HasPrefix(path)
		})
		if !ok {
			if _, err := c.tree.Resolve(path); err != nil {
				return err
			}
			return ErrNothingToPlay
		}
		if _, err := c.tree.SetCursor(ref.Path); err != nil {
			return err
		}
		if err := c.play(ref.SongID); err != nil {
			return err
		}
		c.notify(queueChanged())
		return nil
	})
}

// Pause pauses the playing song.
func (c *Coordinator) Pause(ctx context.Context) error {
	return c.do(ctx, c.player.Pause)
}

// Resume continues the paused song.
func (c *Coordinator) Resume(ctx context.Context) error {
	return c.do(ctx, c.player.Resume)
}

// Seek moves the playing song to pos.
func (c *Coordinator) Seek(ctx context.Context, pos time.Duration) error {
	return c.do(ctx, func() error {
		return c.player.Seek(pos)
	})
}

// SkipNext leaves the playing song as if it had finished.
func (c *Coordinator) SkipNext(ctx context.Context) error {
	return c.do(ctx, func() error {
		return c.proceed(true)
	})
}

// SkipPrevious plays the leaf before the cursor.
func (c *Coordinator) SkipPrevious(ctx context.Context) error {
	return c.do(ctx, func() error {
		id, ok := c.tree.Retreat()
		if !ok {
			return ErrAtStart
		}
		if err := c.play(id); err != nil {
			return err
		}
		c.notify(queueChanged())
		return nil
	})
}

// Stop stops playback. The cursor stays where it is.
func (c *Coordinator) Stop(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.halt(true)
		return nil
	})
}

// SetVolume sets the output volume and returns the applied value.
func (c *Coordinator) SetVolume(ctx context.Context, v float64) (float64, error) {
	var applied float64
	err := c.do(ctx, func() error {
		applied = c.player.SetVolume(v)
		return nil
	})
	return applied, err
}

// ClearCache drops every cached song not held by playback or a fetch.
func (c *Coordinator) ClearCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := c.cache.Clear()
	zlog.Info().Msgf("cleared %d cached songs", n)
	return n, nil
}

// SongInfo returns the metadata of a song.
func (c *Coordinator) SongInfo(ctx context.Context, id song.ID) (song.Metadata, error) {
	if c.catalog == nil {
		return song.Metadata{ID: id}, nil
	}
	return c.catalog.Metadata(ctx, id)
}

// Snapshot returns a copy of the queue.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() error {
		root, cursor := c.tree.Snapshot()
		snap = Snapshot{
			Root:    root,
			Cursor:  cursor,
			Playing: c.playing,
			Drifted: c.drifted,
		}
		return nil
	})
	return snap, err
}

// Status returns the player state and queue position.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, func() error {
		current, _ := c.tree.Current()
		st = Status{
			Playback: c.player.Status(),
			Current:  current,
			Cursor:   c.tree.CurrentPath(),
			Next:     c.upcoming(),
			Drifted:  c.drifted,
			Length:   c.tree.Len(),
		}
		if c.cache != nil {
			st.Cache = c.cache.Stats()
		}
		return nil
	})
	return st, err
}

// IsNotFound reports whether err means a path, song or playlist does not exist.
func IsNotFound(err error) bool {
	return errors.IsAny(err, ErrPlaylistNotFound, song.ErrNotFound)
}
