package queue

import "github.com/cockroachdb/errors"

// Structural errors. Every operation that returns one leaves the tree unchanged.
var (
	ErrInvalidPath     = errors.New("invalid path")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrCyclicMove      = errors.New("cannot move a group into itself")
	ErrInvalidNode     = errors.New("invalid node")
	ErrInvalidRecord   = errors.New("invalid queue record")
)

// IsStructural reports whether err is one of the structural queue errors.
func IsStructural(err error) bool {
	return errors.IsAny(err, ErrInvalidPath, ErrIndexOutOfRange, ErrCyclicMove, ErrInvalidNode)
}
