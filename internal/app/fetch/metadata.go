package fetch

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Metadata resolves song metadata from the in-memory cache, then the
// persistent store, then the remote backend.
func (f *Fetcher) Metadata(ctx context.Context, id song.ID) (song.Metadata, error) {
	if m, ok := f.meta.Get(id); ok {
		return m, nil
	}

	if f.store != nil {
		m, found, err := f.store.GetSong(ctx, id)
		if err != nil {
			zlog.Warn().Err(err).Msgf("Failed to read stored metadata for %s", id)
		} else if found {
			f.meta.Add(id, m)
			return m, nil
		}
	}

	m, err := f.remote.Metadata(ctx, id)
	if err != nil {
		return song.Metadata{}, classify(id, err)
	}
	if m.ID.IsZero() {
		m.ID = id
	}
	f.meta.Add(id, m)

	if f.store != nil {
		if err := f.store.PutSong(ctx, m); err != nil {
			zlog.Warn().Err(err).Msgf("Failed to store metadata for %s", id)
		}
	}
	return m, nil
}

// ForgetMetadata drops the song from the in-memory metadata cache.
func (f *Fetcher) ForgetMetadata(id song.ID) {
	f.meta.Remove(id)
}
