package fetch

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/cache"
	"github.com/osa030/queuebox/internal/domain/song"
)

// Errors
var (
	ErrCancelled = errors.New("fetch cancelled")
	ErrTruncated = errors.New("body shorter than announced length")
)

// Config holds fetcher configuration.
type Config struct {
	ChunkSize         int   // Bytes read per download step; cancellation is checked between steps
	PrebufferBytes    int64 // Bytes required before Ensure hands out a streaming handle
	MetadataCacheSize int   // Entries kept in the in-memory metadata cache
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 32 * 1024
	}
	if c.PrebufferBytes <= 0 {
		c.PrebufferBytes = 256 * 1024
	}
	if c.MetadataCacheSize <= 0 {
		c.MetadataCacheSize = 512
	}
	return c
}

// task is one in-flight acquisition. Fields other than cancelled are guarded
// by Fetcher.mu.
type task struct {
	id        song.ID
	ready     chan struct{} // closed once handle or err is set
	isReady   bool
	handle    *cache.Handle // the task's own pin, held until the download ends and no caller waits
	err       error
	waiters   int
	finished  bool
	released  bool
	cancelled atomic.Bool
}

// Fetcher downloads songs into the audio cache, one task per song.
type Fetcher struct {
	remote Remote
	cache  *cache.Cache
	store  SongStore
	meta   *lru.Cache[song.ID, song.Metadata]
	config Config

	mu    sync.Mutex
	tasks map[song.ID]*task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a fetcher. store may be nil.
func New(remote Remote, c *cache.Cache, store SongStore, config Config) (*Fetcher, error) {
	config = config.withDefaults()
	meta, err := lru.New[song.ID, song.Metadata](config.MetadataCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metadata cache")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Fetcher{
		remote: remote,
		cache:  c,
		store:  store,
		meta:   meta,
		config: config,
		tasks:  make(map[song.ID]*task),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Ensure returns a pinned handle for the song, starting or joining its download.
// The handle is returned once the prebuffer has arrived; the body may still be
// streaming into the resource.
func (f *Fetcher) Ensure(ctx context.Context, id song.ID) (*cache.Handle, error) {
	if id.IsZero() {
		return nil, newError(id, KindNotFound, errors.New("empty song id"))
	}

	f.mu.Lock()
	t, ok := f.tasks[id]
	if !ok {
		if h, hit := f.cache.Acquire(id); hit {
			f.mu.Unlock()
			return h, nil
		}
		t = f.startLocked(id)
	}
	t.waiters++
	t.cancelled.Store(false)
	f.mu.Unlock()
	defer f.leave(t)

	select {
	case <-t.ready:
	case <-ctx.Done():
		return nil, newError(id, KindCancelled, ctx.Err())
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.handle.Retain(), nil
}

// Prefetch starts downloading the song without waiting for it.
func (f *Fetcher) Prefetch(id song.ID) {
	if id.IsZero() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tasks[id]; ok {
		return
	}
	if f.cache.Contains(id) {
		return
	}
	f.startLocked(id)
}

// Cancel asks the song's download to stop at its next chunk boundary.
// It reports false when there is no download or a caller is waiting on it.
// A download whose remaining bytes fit in one chunk completes regardless.
func (f *Fetcher) Cancel(id song.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok || t.waiters > 0 {
		return false
	}
	t.cancelled.Store(true)
	zlog.Debug().Msgf("Cancel requested for %s", id)
	return true
}

// InFlight reports whether a download for the song is running.
func (f *Fetcher) InFlight(id song.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[id]
	return ok
}

// Close aborts every download and waits for them to exit.
func (f *Fetcher) Close() {
	f.cancel()
	f.wg.Wait()
}

func (f *Fetcher) startLocked(id song.ID) *task {
	t := &task{id: id, ready: make(chan struct{})}
	f.tasks[id] = t
	f.wg.Add(1)
	go f.run(t)
	return t
}

func (f *Fetcher) run(t *task) {
	defer f.wg.Done()

	err := f.download(t)
	if err != nil {
		if t.handle != nil {
			t.handle.Resource().Fail(err)
		}
		if IsKind(err, KindCancelled) {
			zlog.Debug().Msgf("Fetch of %s cancelled", t.id)
		} else {
			zlog.Warn().Err(err).Msgf("Fetch of %s failed", t.id)
		}
	}

	f.mu.Lock()
	if f.tasks[t.id] == t {
		delete(f.tasks, t.id)
	}
	f.markReadyLocked(t, err)
	t.finished = true
	h := f.takeHandleLocked(t)
	f.mu.Unlock()

	releaseHandle(h)
}

func (f *Fetcher) download(t *task) error {
	if t.cancelled.Load() && f.abandon(t) {
		return newError(t.id, KindCancelled, ErrCancelled)
	}

	stream, err := f.remote.Fetch(f.ctx, t.id)
	if err != nil {
		return classify(t.id, err)
	}
	defer stream.Body.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(stream.Body, head)
	eof := false
	switch {
	case errors.IsAny(err, io.EOF, io.ErrUnexpectedEOF):
		eof = true
	case err != nil:
		return classify(t.id, err)
	}
	head = head[:n]

	format := Sniff(head)
	if format == cache.FormatUnknown {
		return newError(t.id, KindDecode, errors.Newf("unrecognized audio format (%d bytes sniffed)", n))
	}

	res := cache.NewResource(format, stream.Size)
	if _, err := res.Write(head); err != nil {
		return classify(t.id, err)
	}
	h := f.cache.Put(t.id, res)
	f.mu.Lock()
	t.handle = h
	f.mu.Unlock()
	zlog.Debug().Msgf("Streaming %s (%s, %d bytes announced)", t.id, format, stream.Size)

	received := int64(n)
	buf := make([]byte, f.config.ChunkSize)
	for !eof {
		if received >= f.config.PrebufferBytes {
			f.markReady(t)
		}
		if t.cancelled.Load() && !f.terminal(stream.Size, received) && f.abandon(t) {
			return newError(t.id, KindCancelled, ErrCancelled)
		}

		n, err := stream.Body.Read(buf)
		if n > 0 {
			if _, werr := res.Write(buf[:n]); werr != nil {
				return classify(t.id, werr)
			}
			received += int64(n)
		}
		switch {
		case errors.Is(err, io.EOF):
			eof = true
		case err != nil:
			return classify(t.id, err)
		}
	}

	if stream.Size >= 0 && received < stream.Size {
		return newError(t.id, KindNetwork, errors.Wrapf(ErrTruncated, "%d of %d bytes", received, stream.Size))
	}
	res.Complete()
	zlog.Debug().Msgf("Fetched %s (%d bytes)", t.id, received)
	return nil
}

// terminal reports whether the rest of the body fits in the next chunk.
func (f *Fetcher) terminal(size, received int64) bool {
	return size >= 0 && size-received <= int64(f.config.ChunkSize)
}

// abandon decides whether a cancelled task really stops. A task that gained
// a waiter or whose resource is pinned elsewhere keeps going.
func (f *Fetcher) abandon(t *task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t.waiters > 0 {
		t.cancelled.Store(false)
		return false
	}
	if t.handle != nil && f.cache.Pins(t.id) > 1 {
		t.cancelled.Store(false)
		return false
	}
	if f.tasks[t.id] == t {
		delete(f.tasks, t.id)
	}
	if t.handle != nil {
		t.handle.Resource().Fail(newError(t.id, KindCancelled, ErrCancelled))
	}
	return true
}

func (f *Fetcher) markReady(t *task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadyLocked(t, nil)
}

func (f *Fetcher) markReadyLocked(t *task, err error) {
	if t.isReady {
		return
	}
	t.isReady = true
	t.err = err
	close(t.ready)
}

func (f *Fetcher) leave(t *task) {
	f.mu.Lock()
	t.waiters--
	h := f.takeHandleLocked(t)
	f.mu.Unlock()

	releaseHandle(h)
}

// takeHandleLocked hands back the task's own pin once nobody needs it.
func (f *Fetcher) takeHandleLocked(t *task) *cache.Handle {
	if !t.finished || t.waiters > 0 || t.released || t.handle == nil {
		return nil
	}
	t.released = true
	return t.handle
}

func releaseHandle(h *cache.Handle) {
	if h == nil {
		return
	}
	if h.Resource().Err() != nil {
		h.Discard()
		return
	}
	h.Release()
}
