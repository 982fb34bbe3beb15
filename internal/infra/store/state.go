package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/osa030/queuebox/internal/domain/queue"
)

// State is what the server carries across a restart.
type State struct {
	SavedAt time.Time        `yaml:"saved_at"`
	Volume  float64          `yaml:"volume"`
	Queue   queue.TreeRecord `yaml:"queue"`
}

// StateStore keeps the server state in a single YAML file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates the parent directory of path when missing.
func NewStateStore(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create state directory for %s", path)
	}
	return &StateStore{path: path}, nil
}

// Load reads the saved state. found is false when nothing was saved yet.
func (s *StateStore) Load() (state State, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, errors.Wrapf(err, "failed to read %s", s.path)
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return State{}, false, errors.Wrapf(err, "failed to parse %s", s.path)
	}
	return state, true, nil
}

// Save replaces the saved state.
func (s *StateStore) Save(state State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to encode state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

// writeAtomic writes data next to path and renames it into place, so a crash
// never leaves a truncated file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to store %s", path)
	}
	return nil
}
