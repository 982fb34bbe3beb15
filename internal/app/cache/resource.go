package cache

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

// Format identifies the container format of an audio resource.
type Format int

const (
	FormatUnknown Format = iota
	FormatMP3
	FormatWAV
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatWAV:
		return "wav"
	default:
		return "unknown"
	}
}

// maxPrealloc bounds the buffer reserved up front from an announced size.
const maxPrealloc = 8 << 20

// Resource errors
var (
	ErrResourceClosed = errors.New("resource is already complete")
	ErrNotSeekable    = errors.New("resource is still streaming")
	ErrReaderClosed   = errors.New("reader is closed")
)

// Resource is an audio body that may still be downloading.
// Writers append bytes; readers block until the bytes they need arrive
// or the resource completes.
type Resource struct {
	mu sync.Mutex

	format   Format
	expected int64 // -1 when the total size is unknown
	data     []byte
	done     bool
	err      error
	changed  chan struct{} // closed and replaced on every state change
}

// NewResource creates an empty, still-streaming resource.
func NewResource(format Format, expected int64) *Resource {
	if expected < 0 {
		expected = -1
	}
	return &Resource{
		format:   format,
		expected: expected,
		data:     make([]byte, 0, min(max(expected, 0), maxPrealloc)),
		changed:  make(chan struct{}),
	}
}

// NewCompleteResource creates a resource whose body is fully known.
func NewCompleteResource(format Format, data []byte) *Resource {
	r := NewResource(format, int64(len(data)))
	r.data = append(r.data, data...)
	r.done = true
	return r
}

// Format returns the container format.
func (r *Resource) Format() Format {
	return r.format
}

// Write appends p to the body.
func (r *Resource) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return 0, ErrResourceClosed
	}
	r.data = append(r.data, p...)
	r.notifyLocked()
	return len(p), nil
}

// Complete marks the body as fully written.
func (r *Resource) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}
	r.done = true
	r.notifyLocked()
}

// Fail marks the body as broken. Readers see err once they drain the bytes
// written so far.
func (r *Resource) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}
	r.done = true
	r.err = err
	r.notifyLocked()
}

// Size returns the number of bytes written so far.
func (r *Resource) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.data))
}

// Expected returns the announced total size, -1 when unknown.
func (r *Resource) Expected() int64 {
	return r.expected
}

// SizeEstimate returns the size the resource will occupy once complete.
func (r *Resource) SizeEstimate() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return max(r.expected, int64(len(r.data)))
}

// IsComplete reports whether writing has ended, successfully or not.
func (r *Resource) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the failure recorded by Fail.
func (r *Resource) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// WaitComplete blocks until the resource completes or ctx is done.
func (r *Resource) WaitComplete(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.done {
			err := r.err
			r.mu.Unlock()
			return err
		}
		ch := r.changed
		r.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NewReader returns an independent reader positioned at the start of the body.
func (r *Resource) NewReader() *Reader {
	return &Reader{
		res:    r,
		closed: make(chan struct{}),
	}
}

func (r *Resource) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// Reader reads a Resource from its own offset.
type Reader struct {
	res       *Resource
	off       int64
	closeOnce sync.Once
	closed    chan struct{}
}

// Read blocks until at least one byte past the offset is available, the
// resource completes, or the reader is closed.
func (rd *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		select {
		case <-rd.closed:
			return 0, ErrReaderClosed
		default:
		}

		r := rd.res
		r.mu.Lock()
		if rd.off < int64(len(r.data)) {
			n := copy(p, r.data[rd.off:])
			rd.off += int64(n)
			r.mu.Unlock()
			return n, nil
		}
		if r.done {
			err := r.err
			r.mu.Unlock()
			if err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		ch := r.changed
		r.mu.Unlock()

		select {
		case <-ch:
		case <-rd.closed:
			return 0, ErrReaderClosed
		}
	}
}

// Seek sets the offset. Seeking relative to the end requires a complete resource.
func (rd *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = rd.off + offset
	case io.SeekEnd:
		r := rd.res
		r.mu.Lock()
		done, size := r.done, int64(len(r.data))
		r.mu.Unlock()
		if !done {
			return 0, ErrNotSeekable
		}
		abs = size + offset
	default:
		return 0, errors.Newf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.Newf("negative position %d", abs)
	}
	rd.off = abs
	return abs, nil
}

// Close unblocks a pending Read. Close is idempotent.
func (rd *Reader) Close() error {
	rd.closeOnce.Do(func() { close(rd.closed) })
	return nil
}
