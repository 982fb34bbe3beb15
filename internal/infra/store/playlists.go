package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/osa030/queuebox/internal/app/coordinator"
	"github.com/osa030/queuebox/internal/domain/playlist"
	"github.com/osa030/queuebox/internal/domain/queue"
)

const playlistExt = ".yaml"

// playlistFile is the on-disk form of a playlist.
type playlistFile struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	SavedAt time.Time    `yaml:"saved_at"`
	Root    queue.Record `yaml:"root"`
}

// PlaylistStore keeps one YAML file per playlist in a directory.
type PlaylistStore struct {
	mu  sync.Mutex
	dir string
}

// NewPlaylistStore creates the directory when missing.
func NewPlaylistStore(dir string) (*PlaylistStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create playlist directory %s", dir)
	}
	return &PlaylistStore{dir: dir}, nil
}

// Ensure PlaylistStore implements the interface.
var _ coordinator.PlaylistStore = (*PlaylistStore)(nil)

// Save writes the playlist, replacing a previous version with the same ID.
func (s *PlaylistStore) Save(p *playlist.Playlist) error {
	if p == nil || p.Root == nil {
		return errors.Wrap(queue.ErrInvalidNode, "playlist has no root")
	}
	data, err := yaml.Marshal(playlistFile{
		ID:      p.ID.String(),
		Name:    p.Name,
		SavedAt: p.SavedAt,
		Root:    p.Root.ToRecord(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode playlist")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path(p.ID), data)
}

// Load reads a playlist by ID.
func (s *PlaylistStore) Load(id uuid.UUID) (*playlist.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.path(id))
}

// List returns every readable playlist, newest first. Unreadable files are skipped.
func (s *PlaylistStore) List() ([]*playlist.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", s.dir)
	}

	playlists := make([]*playlist.Playlist, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), playlistExt) {
			continue
		}
		p, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			zlog.Warn().Err(err).Msgf("skipping playlist file %s", e.Name())
			continue
		}
		playlists = append(playlists, p)
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		if !playlists[i].SavedAt.Equal(playlists[j].SavedAt) {
			return playlists[i].SavedAt.After(playlists[j].SavedAt)
		}
		return playlists[i].Name < playlists[j].Name
	})
	return playlists, nil
}

// Delete removes a playlist.
func (s *PlaylistStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return errors.Wrapf(coordinator.ErrPlaylistNotFound, "%s", id)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to delete playlist %s", id)
	}
	return nil
}

func (s *PlaylistStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+playlistExt)
}

// read must be called with s.mu held.
func (s *PlaylistStore) read(path string) (*playlist.Playlist, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(coordinator.ErrPlaylistNotFound, "%s", filepath.Base(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var f playlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	id, err := uuid.Parse(f.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid playlist id in %s", path)
	}
	root, err := queue.FromRecord(f.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid playlist tree in %s", path)
	}
	if !root.IsGroup() {
		return nil, errors.Wrapf(queue.ErrInvalidRecord, "playlist root in %s is not a group", path)
	}
	return &playlist.Playlist{ID: id, Name: f.Name, Root: root, SavedAt: f.SavedAt}, nil
}
