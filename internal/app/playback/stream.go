package playback

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

const (
	feedChunk = 512                    // frames decoded per step
	feedAhead = 250 * time.Millisecond // audio decoded ahead of the output
)

// sampleRing hands decoded frames from the decoding goroutine to the output.
// The output side never waits on it; the decoding side waits for room.
type sampleRing struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  [][2]float64
	head int
	size int

	gen     uint64 // bumped by every seek; frames decoded for an older gen are dropped
	seekTo  int
	seeking bool
	ended   bool  // the decoder reached the end for gen
	err     error // why it ended, nil for a clean end
	closed  bool

	pos atomic.Int64 // frames handed to the output
}

func newSampleRing(capacity int) *sampleRing {
	r := &sampleRing{buf: make([][2]float64, max(capacity, feedChunk))}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// pop moves queued frames into dst without blocking. drained reports that
// the decoder has ended and nothing is left.
func (r *sampleRing) pop(dst [][2]float64) (n int, drained bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n = min(len(dst), r.size)
	first := min(n, len(r.buf)-r.head)
	copy(dst[:first], r.buf[r.head:r.head+first])
	copy(dst[first:n], r.buf[:n-first])
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
	if n > 0 {
		r.pos.Add(int64(n))
		r.cond.Broadcast()
	}
	return n, r.ended && r.size == 0
}

// push appends frames decoded for gen, waiting for room. It returns false
// once the ring is closed or a seek made the frames stale.
func (r *sampleRing) push(gen uint64, frames [][2]float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(frames) > 0 {
		for !r.closed && r.gen == gen && r.size == len(r.buf) {
			r.cond.Wait()
		}
		if r.closed || r.gen != gen {
			return false
		}
		tail := (r.head + r.size) % len(r.buf)
		n := min(len(frames), len(r.buf)-r.size, len(r.buf)-tail)
		copy(r.buf[tail:tail+n], frames[:n])
		r.size += n
		frames = frames[n:]
	}
	return true
}

// next waits until the decoder has work: a pending seek, or more frames to
// decode. ok is false once the ring is closed.
func (r *sampleRing) next() (gen uint64, seekTo int, seek, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for !r.closed && !r.seeking && r.ended {
		r.cond.Wait()
	}
	if r.closed {
		return 0, 0, false, false
	}
	if r.seeking {
		r.seeking = false
		return r.gen, r.seekTo, true, true
	}
	return r.gen, 0, false, true
}

// finish records the end of the stream decoded for gen.
func (r *sampleRing) finish(gen uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen == gen {
		r.ended = true
		r.err = err
	}
}

// seek drops queued frames and has the decoder continue from frame n.
func (r *sampleRing) seek(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.head, r.size = 0, 0
	r.seekTo, r.seeking = n, true
	r.ended, r.err = false, nil
	r.pos.Store(int64(n))
	r.cond.Broadcast()
}

// result returns why the stream ended.
func (r *sampleRing) result() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *sampleRing) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}

// ringStreamer plays the ring. An empty ring that has not ended plays as silence.
type ringStreamer struct {
	ring *sampleRing
}

func (s ringStreamer) Stream(samples [][2]float64) (int, bool) {
	n, drained := s.ring.pop(samples)
	if n == len(samples) {
		return n, true
	}
	if drained {
		return n, n > 0
	}
	clear(samples[n:])
	return len(samples), true
}

func (s ringStreamer) Err() error {
	return nil
}

// voice is the streamer handed to the output. It reads only from the ring,
// so pausing or changing the volume never waits on a download.
type voice struct {
	mu     sync.Mutex
	paused bool
	gain   *effects.Volume
}

func newVoice(ring *sampleRing, from, to beep.SampleRate, quality int) *voice {
	var s beep.Streamer = ringStreamer{ring: ring}
	if from != to {
		s = beep.Resample(quality, from, to, s)
	}
	return &voice{gain: &effects.Volume{Streamer: s, Base: 2}}
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused {
		clear(samples)
		return len(samples), true
	}
	return v.gain.Stream(samples)
}

func (v *voice) Err() error {
	return nil
}

func (v *voice) setPaused(paused bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = paused
}

func (v *voice) setVolume(volume float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	applyVolume(v.gain, volume)
}
