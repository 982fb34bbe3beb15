// Package fetch acquires audio bytes and song metadata from the remote backend.
package fetch

import (
	"context"
	"io"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Stream is an open audio body.
type Stream struct {
	Body io.ReadCloser
	Size int64 // -1 when the backend did not announce a length
}

// Remote is the catalog/download backend.
type Remote interface {
	Fetch(ctx context.Context, id song.ID) (*Stream, error)
	Metadata(ctx context.Context, id song.ID) (song.Metadata, error)
}

// SongStore persists song metadata between runs.
type SongStore interface {
	GetSong(ctx context.Context, id song.ID) (song.Metadata, bool, error)
	PutSong(ctx context.Context, m song.Metadata) error
}
