package playback

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Errors
var (
	ErrInvalidTransition = errors.New("invalid playback transition")
	ErrSeekUnavailable   = errors.New("seek position is not available yet")
	ErrTruncated         = errors.New("audio body ended before its announced length")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoAudioDevice     = errors.New("audio output is not available in this build")
)

// PlaybackError reports why a song could not be played.
type PlaybackError struct {
	SongID song.ID
	Device bool // the output failed, not the song
	Err    error
}

func (e *PlaybackError) Error() string {
	if e.Device {
		return fmt.Sprintf("audio device error playing %s: %v", e.SongID, e.Err)
	}
	return fmt.Sprintf("could not play %s: %v", e.SongID, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

func invalidTransition(op string, from State) error {
	return errors.Wrapf(ErrInvalidTransition, "%s from %s", op, from)
}
