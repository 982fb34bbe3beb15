package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/app/cache"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/domain/playlist"
	"github.com/osa030/queuebox/internal/domain/queue"
	"github.com/osa030/queuebox/internal/domain/song"
)

// Player is the playback engine as seen by the coordinator.
type Player interface {
	Play(id song.ID) error
	Pause() error
	Resume() error
	Seek(pos time.Duration) error
	Stop()
	SetVolume(v float64) float64
	Status() playback.Status
	Events() <-chan playback.Event
}

// Catalog resolves metadata and warms the cache ahead of playback.
type Catalog interface {
	Metadata(ctx context.Context, id song.ID) (song.Metadata, error)
	Prefetch(id song.ID)
	Cancel(id song.ID) bool
}

// AudioCache is the part of the cache the coordinator manages.
type AudioCache interface {
	Clear() int
	Stats() cache.Stats
}

// PlaylistStore persists saved playlists.
type PlaylistStore interface {
	Save(p *playlist.Playlist) error
	Load(id uuid.UUID) (*playlist.Playlist, error)
	List() ([]*playlist.Playlist, error)
	Delete(id uuid.UUID) error
}

// queueView exposes the tree to the admission filters.
type queueView struct {
	tree *queue.Tree
}

func (v queueView) Contains(id song.ID) bool {
	return v.tree.Contains(id)
}

func (v queueView) SongIDs() []song.ID {
	return lo.Map(v.tree.Leaves(), func(ref queue.LeafRef, _ int) song.ID {
		return ref.SongID
	})
}

func (v queueView) TotalDuration() time.Duration {
	return lo.SumBy(v.tree.Leaves(), func(ref queue.LeafRef) time.Duration {
		return ref.DurationHint
	})
}
