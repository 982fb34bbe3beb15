package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/domain/song"
)

type fakeQueue struct {
	songs []song.Metadata
}

func (q *fakeQueue) Contains(id song.ID) bool {
	return lo.ContainsBy(q.songs, func(m song.Metadata) bool { return m.ID == id })
}

func (q *fakeQueue) SongIDs() []song.ID {
	return lo.Map(q.songs, func(m song.Metadata, _ int) song.ID { return m.ID })
}

func (q *fakeQueue) TotalDuration() time.Duration {
	return lo.SumBy(q.songs, func(m song.Metadata) time.Duration { return m.Duration })
}

// Metadata lets the same fake serve as the catalog.
func (q *fakeQueue) Metadata(_ context.Context, id song.ID) (song.Metadata, error) {
	m, ok := lo.Find(q.songs, func(m song.Metadata) bool { return m.ID == id })
	if !ok {
		return song.Metadata{}, errors.Wrapf(song.ErrNotFound, "%s", id)
	}
	return m, nil
}
