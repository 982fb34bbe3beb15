// Package cache provides the bounded audio resource cache.
package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/domain/song"
)

// ErrNoLoader is returned by GetOrFetch when a miss cannot be delegated.
var ErrNoLoader = errors.New("cache has no loader")

// EvictStatus reports the outcome of an explicit eviction.
type EvictStatus int

const (
	Evicted EvictStatus = iota // Entry was removed
	Absent                     // No entry for the song
	Pinned                     // Entry is in use and was kept
)

// String returns the string representation of the status.
func (s EvictStatus) String() string {
	switch s {
	case Evicted:
		return "evicted"
	case Absent:
		return "absent"
	case Pinned:
		return "pinned"
	default:
		return "unknown"
	}
}

// Loader acquires a resource on a cache miss and returns it pinned.
type Loader interface {
	Ensure(ctx context.Context, id song.ID) (*Handle, error)
}

// Entry is a point-in-time view of a cached resource.
type Entry struct {
	SongID       song.ID
	Resource     *Resource
	LastUsedAt   time.Time
	SizeEstimate int64
	Pins         int
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries  int
	Bytes    int64
	Pinned   int
	Capacity int64
}

type entry struct {
	id       song.ID
	res      *Resource
	lastUsed time.Time
	pins     int
}

// Cache is a size-bounded store of audio resources keyed by song.
// Unpinned entries are evicted least recently used first once the total size
// estimate exceeds the capacity. Pinned entries are never evicted.
type Cache struct {
	mu sync.Mutex

	entries  map[song.ID]*entry
	capacity int64 // bytes, 0 or less is unbounded
	loader   Loader
	now      func() time.Time
}

// New creates a cache bounded to capacity bytes.
func New(capacity int64) *Cache {
	return &Cache{
		entries:  make(map[song.ID]*entry),
		capacity: capacity,
		now:      time.Now,
	}
}

// SetLoader configures where misses are delegated.
func (c *Cache) SetLoader(l Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loader = l
}

// GetOrFetch returns a pinned handle for the song, delegating to the loader on a miss.
func (c *Cache) GetOrFetch(ctx context.Context, id song.ID) (*Handle, error) {
	if h, ok := c.Acquire(id); ok {
		return h, nil
	}

	c.mu.Lock()
	loader := c.loader
	c.mu.Unlock()
	if loader == nil {
		return nil, errors.Wrapf(ErrNoLoader, "song %s", id)
	}
	return loader.Ensure(ctx, id)
}

// Acquire pins an entry that is present and not failed.
func (c *Cache) Acquire(id song.ID) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if e.res.Err() != nil {
		if e.pins == 0 {
			delete(c.entries, id)
		}
		return nil, false
	}
	return c.pinLocked(e), true
}

// Put registers a resource for the song and returns it pinned.
// An entry already present for the song is replaced; handles to it stay valid.
func (c *Cache) Put(id song.ID, res *Resource) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{id: id, res: res}
	c.entries[id] = e
	h := c.pinLocked(e)
	c.evictLocked()
	return h
}

// Evict removes the entry for the song unless it is pinned.
func (c *Cache) Evict(id song.ID) EvictStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Absent
	}
	if e.pins > 0 {
		return Pinned
	}
	delete(c.entries, id)
	return Evicted
}

// Clear removes every unpinned entry and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if e.pins == 0 {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Contains reports whether an entry exists for the song.
func (c *Cache) Contains(id song.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Pins returns the pin count of the song's entry, 0 when absent.
func (c *Cache) Pins(id song.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.pins
	}
	return 0
}

// Entries returns a view of every entry, most recently used first.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := lo.MapToSlice(c.entries, func(_ song.ID, e *entry) Entry {
		return Entry{
			SongID:       e.id,
			Resource:     e.res,
			LastUsedAt:   e.lastUsed,
			SizeEstimate: e.res.SizeEstimate(),
			Pins:         e.pins,
		}
	})
	slices.SortStableFunc(list, func(a, b Entry) int {
		return b.LastUsedAt.Compare(a.LastUsedAt)
	})
	return list
}

// Stats returns a summary of the cache contents.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Entries: len(c.entries), Capacity: c.capacity}
	for _, e := range c.entries {
		s.Bytes += e.res.SizeEstimate()
		if e.pins > 0 {
			s.Pinned++
		}
	}
	return s
}

func (c *Cache) pinLocked(e *entry) *Handle {
	e.pins++
	e.lastUsed = c.now()
	return &Handle{cache: c, entry: e}
}

func (c *Cache) release(e *entry, discard bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.pins > 0 {
		e.pins--
	}
	if e.pins > 0 {
		return
	}
	if discard && c.entries[e.id] == e {
		delete(c.entries, e.id)
		return
	}
	c.evictLocked()
}

// evictLocked drops least recently used unpinned entries until the cache fits.
// Must be called with c.mu held.
func (c *Cache) evictLocked() {
	if c.capacity <= 0 {
		return
	}
	total := lo.SumBy(lo.Values(c.entries), func(e *entry) int64 { return e.res.SizeEstimate() })
	for total > c.capacity {
		candidates := lo.Filter(lo.Values(c.entries), func(e *entry, _ int) bool { return e.pins == 0 })
		if len(candidates) == 0 {
			zlog.Debug().Msgf("Cache over capacity (%d > %d) with every entry pinned", total, c.capacity)
			return
		}
		oldest := lo.MinBy(candidates, func(a, b *entry) bool { return a.lastUsed.Before(b.lastUsed) })
		delete(c.entries, oldest.id)
		total -= oldest.res.SizeEstimate()
		zlog.Debug().Msgf("Evicted %s from cache", oldest.id)
	}
}

// Handle is a pinned reference to a cached resource.
type Handle struct {
	cache *Cache
	entry *entry
	once  sync.Once
}

// SongID returns the song the handle refers to.
func (h *Handle) SongID() song.ID {
	return h.entry.id
}

// Resource returns the pinned resource.
func (h *Handle) Resource() *Resource {
	return h.entry.res
}

// Retain returns an additional handle pinning the same entry.
func (h *Handle) Retain() *Handle {
	c := h.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinLocked(h.entry)
}

// Release unpins the entry. Calling it more than once has no further effect.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.cache.release(h.entry, false)
	})
}

// Discard releases the handle and drops the entry once nothing else pins it.
// An entry that has since been replaced for the same song is left alone.
func (h *Handle) Discard() {
	h.once.Do(func() {
		h.cache.release(h.entry, true)
	})
}
