package coordinator

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/domain/playlist"
	"github.com/osa030/queuebox/internal/domain/queue"
)

// SavePlaylist stores the node at path under name. The root saves the whole queue.
func (c *Coordinator) SavePlaylist(ctx context.Context, name string, path queue.Path) (*playlist.Playlist, error) {
	if c.playlists == nil {
		return nil, ErrNoPlaylistStore
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node, err := c.tree.Resolve(path)
	if err != nil {
		return nil, err
	}
	p, err := playlist.New(name, node, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.playlists.Save(p); err != nil {
		return nil, errors.Wrapf(err, "failed to save playlist %q", p.Name)
	}
	zlog.Info().Msgf("saved playlist %q (%s, %d songs)", p.Name, p.ID, p.Len())
	return p, nil
}

// LoadPlaylist inserts a saved playlist as a group.
func (c *Coordinator) LoadPlaylist(ctx context.Context, id uuid.UUID, parent queue.Path, index int) (EnqueueResult, error) {
	if c.playlists == nil {
		return EnqueueResult{}, ErrNoPlaylistStore
	}
	p, err := c.playlists.Load(id)
	if err != nil {
		return EnqueueResult{}, err
	}
	return c.Enqueue(ctx, EnqueueRequest{
		Parent: parent,
		Index:  index,
		Node:   p.Instantiate(),
		Origin: filter.OriginPlaylist,
	})
}

// ListPlaylists returns every saved playlist.
func (c *Coordinator) ListPlaylists(ctx context.Context) ([]*playlist.Playlist, error) {
	if c.playlists == nil {
		return nil, ErrNoPlaylistStore
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.playlists.List()
}

// DeletePlaylist removes a saved playlist.
func (c *Coordinator) DeletePlaylist(ctx context.Context, id uuid.UUID) error {
	if c.playlists == nil {
		return ErrNoPlaylistStore
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.playlists.Delete(id)
}
