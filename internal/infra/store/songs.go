// Package store persists song metadata and saved playlists.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/song"
)

const createSongsSQL = `
	CREATE TABLE IF NOT EXISTS songs (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		artists     TEXT NOT NULL DEFAULT '[]',
		channel     TEXT NOT NULL DEFAULT '',
		album       TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		url         TEXT NOT NULL DEFAULT '',
		thumbnail   TEXT NOT NULL DEFAULT '',
		tags        TEXT NOT NULL DEFAULT '[]',
		updated_at  DATETIME NOT NULL
	);
	`

// SongStore keeps song metadata in SQLite.
type SongStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSongStore opens the database at path, creating the schema when missing.
// The path can be ":memory:" for an in-memory database.
func OpenSongStore(path string) (*SongStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if _, err := db.Exec(createSongsSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create songs table")
	}
	zlog.Debug().Msgf("song database initialized at %s", path)
	return &SongStore{db: db, now: time.Now}, nil
}

// GetSong returns the stored metadata of a song.
func (s *SongStore) GetSong(ctx context.Context, id song.ID) (song.Metadata, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, artists, channel, album, duration_ms, url, thumbnail, tags
		FROM songs WHERE id = ?`, id.String())

	var (
		m             song.Metadata
		rawID         string
		artists, tags string
		durationMs    int64
	)
	err := row.Scan(&rawID, &m.Title, &artists, &m.Channel, &m.Album, &durationMs, &m.URL, &m.Thumbnail, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return song.Metadata{}, false, nil
	}
	if err != nil {
		return song.Metadata{}, false, errors.Wrapf(err, "failed to read song %s", id)
	}

	m.ID = song.ID(rawID)
	m.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(artists), &m.Artists); err != nil {
		return song.Metadata{}, false, errors.Wrapf(err, "corrupt artists of song %s", id)
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return song.Metadata{}, false, errors.Wrapf(err, "corrupt tags of song %s", id)
	}
	return m, true, nil
}

// PutSong inserts or replaces the metadata of a song.
func (s *SongStore) PutSong(ctx context.Context, m song.Metadata) error {
	if m.ID.IsZero() {
		return errors.New("song id is required")
	}
	artists, err := json.Marshal(nonNil(m.Artists))
	if err != nil {
		return errors.Wrap(err, "failed to encode artists")
	}
	tags, err := json.Marshal(nonNil(m.Tags))
	if err != nil {
		return errors.Wrap(err, "failed to encode tags")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO songs
			(id, title, artists, channel, album, duration_ms, url, thumbnail, tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.Title, string(artists), m.Channel, m.Album,
		m.Duration.Milliseconds(), m.URL, m.Thumbnail, string(tags), s.now())
	if err != nil {
		return errors.Wrapf(err, "failed to store song %s", m.ID)
	}
	return nil
}

// Count returns the number of stored songs.
func (s *SongStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count songs")
	}
	return n, nil
}

// Close closes the database connection.
func (s *SongStore) Close() error {
	return s.db.Close()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
