package coordinator

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Errors
var (
	ErrNotRunning       = errors.New("coordinator is not running")
	ErrNothingToPlay    = errors.New("queue has nothing to play")
	ErrAtStart          = errors.New("already at the first song")
	ErrNoPlaylistStore  = errors.New("playlist storage is not configured")
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// RejectedError reports a song refused by the admission filters.
type RejectedError struct {
	SongID song.ID
	Code   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("song %s rejected: %s", e.SongID, e.Code)
}

// IsRejected reports whether err carries a filter rejection and returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
