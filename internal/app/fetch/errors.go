package fetch

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/osa030/queuebox/internal/domain/song"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	KindNotFound  Kind = iota // Catalog does not know the song
	KindNetwork               // Transport failure or truncated body
	KindDecode                // Body is not a supported audio format
	KindCancelled             // Fetch was cancelled before completing
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// FetchError is returned by every failed acquisition.
type FetchError struct {
	SongID song.ID
	Kind   Kind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.SongID, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.SongID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a FetchError of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

func newError(id song.ID, kind Kind, err error) *FetchError {
	return &FetchError{SongID: id, Kind: kind, Err: err}
}

// classify maps a remote failure onto a FetchError.
func classify(id song.ID, err error) error {
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, song.ErrNotFound):
		return newError(id, KindNotFound, err)
	case errors.IsAny(err, context.Canceled, context.DeadlineExceeded):
		return newError(id, KindCancelled, err)
	default:
		return newError(id, KindNetwork, err)
	}
}
