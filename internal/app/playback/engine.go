package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/cache"
	"github.com/osa030/queuebox/internal/domain/song"
)

// Source hands out pinned audio resources.
type Source interface {
	GetOrFetch(ctx context.Context, id song.ID) (*cache.Handle, error)
}

// Config holds engine configuration.
type Config struct {
	ProgressInterval time.Duration // Interval between EventProgress while playing
	EventBuffer      int           // Capacity of the event channel
	Volume           float64       // Initial volume, 0..1
	ResampleQuality  int           // beep.Resample quality when rates differ
}

// Engine plays one song at a time and reports what happens on a single
// event channel. It never chooses the next song.
type Engine struct {
	mu sync.RWMutex

	source Source
	output Output
	config Config

	state      State
	songID     song.ID
	handle     *cache.Handle
	audio      *decoded
	voice      *voice
	volume     float64
	playbackID uint64 // bumped on every Play and Stop; stale callbacks compare against it

	loadCancel     context.CancelFunc
	progressCancel context.CancelFunc

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates an idle engine.
func NewEngine(source Source, output Output, config Config) *Engine {
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = time.Second
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 32
	}
	if config.ResampleQuality <= 0 {
		config.ResampleQuality = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		source:  source,
		output:  output,
		config:  config,
		state:   StateIdle,
		volume:  clampVolume(config.Volume),
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Play loads the song and starts it. A different active song is stopped first.
// Play returns once the engine is Loading; the outcome arrives as an event.
func (e *Engine) Play(id song.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.songID == id {
		switch e.state {
		case StateLoading, StatePlaying:
			return nil
		case StatePaused:
			return e.resumeLocked()
		}
	}

	e.teardownLocked()
	e.playbackID++
	pid := e.playbackID
	e.state = StateLoading
	e.songID = id

	ctx, cancel := context.WithCancel(e.ctx)
	e.loadCancel = cancel
	e.sendEventLocked(Event{Type: EventStateChanged, SongID: id, Status: e.statusLocked()})

	zlog.Debug().Msgf("Loading %s", id)
	go e.load(ctx, pid, id)
	return nil
}

func (e *Engine) load(ctx context.Context, pid uint64, id song.ID) {
	h, err := e.source.GetOrFetch(ctx, id)
	if err != nil {
		e.failLoad(pid, &PlaybackError{SongID: id, Err: err})
		return
	}

	audio, err := decode(h.Resource())
	if err != nil {
		h.Release()
		e.failLoad(pid, &PlaybackError{SongID: id, Err: err})
		return
	}

	e.mu.Lock()
	if pid != e.playbackID {
		e.mu.Unlock()
		audio.close()
		h.Release()
		zlog.Debug().Msgf("Dropping stale load of %s", id)
		return
	}

	e.handle = h
	e.audio = audio
	e.loadCancel = nil

	e.voice = newVoice(audio.ring, audio.format.SampleRate, e.output.SampleRate(), e.config.ResampleQuality)
	e.voice.setVolume(e.volume)

	seq := beep.Seq(e.voice, beep.Callback(func() {
		// Runs on the output goroutine.
		go e.onFinished(pid)
	}))
	if err := e.output.Play(seq); err != nil {
		e.teardownLocked()
		e.state = StateIdle
		e.songID = ""
		e.mu.Unlock()
		e.sendBlocking(Event{Type: EventLoadFailed, SongID: id, Status: e.Status(), Err: &PlaybackError{SongID: id, Device: true, Err: err}})
		return
	}

	e.state = StatePlaying
	e.startProgressLocked(pid)
	e.sendEventLocked(Event{Type: EventStateChanged, SongID: id, Status: e.statusLocked()})
	e.mu.Unlock()

	zlog.Info().Msgf("Playing %s", id)
}

func (e *Engine) failLoad(pid uint64, perr *PlaybackError) {
	e.mu.Lock()
	if pid != e.playbackID {
		e.mu.Unlock()
		return
	}
	e.loadCancel = nil
	e.state = StateIdle
	e.songID = ""
	status := e.statusLocked()
	e.mu.Unlock()

	zlog.Warn().Err(perr.Err).Msgf("Failed to load %s", perr.SongID)
	e.sendBlocking(Event{Type: EventLoadFailed, SongID: perr.SongID, Status: status, Err: perr})
}

func (e *Engine) onFinished(pid uint64) {
	e.mu.Lock()
	if pid != e.playbackID || e.state != StatePlaying {
		e.mu.Unlock()
		return
	}
	id := e.songID
	streamErr := e.audio.ring.result()
	e.teardownLocked()
	if streamErr != nil {
		e.state = StateIdle
		e.songID = ""
		status := e.statusLocked()
		e.mu.Unlock()

		zlog.Warn().Err(streamErr).Msgf("Stream of %s broke off", id)
		e.sendBlocking(Event{Type: EventLoadFailed, SongID: id, Status: status, Err: &PlaybackError{SongID: id, Err: streamErr}})
		return
	}
	e.state = StateFinished
	status := e.statusLocked()
	e.mu.Unlock()

	zlog.Debug().Msgf("Finished %s", id)
	e.sendBlocking(Event{Type: EventFinished, SongID: id, Status: status})
}

// Pause pauses the playing song.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying {
		return invalidTransition("pause", e.state)
	}
	e.voice.setPaused(true)
	e.state = StatePaused
	e.sendEventLocked(Event{Type: EventStateChanged, SongID: e.songID, Status: e.statusLocked()})
	return nil
}

// Resume continues the paused song.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeLocked()
}

func (e *Engine) resumeLocked() error {
	if e.state != StatePaused {
		return invalidTransition("resume", e.state)
	}
	e.voice.setPaused(false)
	e.state = StatePlaying
	e.sendEventLocked(Event{Type: EventStateChanged, SongID: e.songID, Status: e.statusLocked()})
	return nil
}

// Seek moves to pos, clamped to the song's bounds.
func (e *Engine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying && e.state != StatePaused {
		return invalidTransition("seek", e.state)
	}
	if !e.audio.seekable {
		return ErrSeekUnavailable
	}

	n := max(e.audio.format.SampleRate.N(pos), 0)
	if e.audio.length > 0 {
		n = min(n, e.audio.length)
	}
	if !e.audio.reachable(n) {
		return errors.Wrapf(ErrSeekUnavailable, "%s of %s has not been downloaded", pos, e.songID)
	}
	e.audio.ring.seek(n)
	e.sendEventLocked(Event{Type: EventProgress, SongID: e.songID, Status: e.statusLocked()})
	return nil
}

// Stop releases the current song and returns to Idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return
	}
	e.teardownLocked()
	e.playbackID++
	e.state = StateIdle
	e.songID = ""
	e.sendEventLocked(Event{Type: EventStateChanged, Status: e.statusLocked()})
}

// SetVolume sets the output gain, clamped to 0..1.
func (e *Engine) SetVolume(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = clampVolume(v)
	if e.voice != nil {
		e.voice.setVolume(e.volume)
	}
	return e.volume
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked()
}

// Close stops playback and aborts pending loads.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.playbackID++
	e.state = StateIdle
	e.songID = ""
	e.mu.Unlock()
	e.cancel()
}

func (e *Engine) statusLocked() Status {
	st := Status{
		State:  e.state,
		SongID: e.songID,
		Volume: e.volume,
	}
	if e.audio == nil {
		return st
	}
	rate := e.audio.format.SampleRate
	st.Position = rate.D(int(e.audio.ring.pos.Load()))
	if e.audio.length > 0 {
		st.Duration = rate.D(e.audio.length)
		st.Position = min(st.Position, st.Duration)
	}
	st.Seekable = e.audio.seekable
	return st
}

// teardownLocked releases everything tied to the current song.
func (e *Engine) teardownLocked() {
	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	if e.progressCancel != nil {
		e.progressCancel()
		e.progressCancel = nil
	}
	if e.audio != nil {
		e.audio.close()
		e.output.Clear()
		e.audio = nil
	}
	e.voice = nil
	if e.handle != nil {
		e.handle.Release()
		e.handle = nil
	}
}

func (e *Engine) startProgressLocked(pid uint64) {
	ctx, cancel := context.WithCancel(e.ctx)
	e.progressCancel = cancel

	go func() {
		ticker := time.NewTicker(e.config.ProgressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.mu.RLock()
				if pid != e.playbackID {
					e.mu.RUnlock()
					return
				}
				if e.state == StatePlaying {
					e.sendEventLocked(Event{Type: EventProgress, SongID: e.songID, Status: e.statusLocked()})
				}
				e.mu.RUnlock()
			}
		}
	}()
}

// sendEventLocked delivers e without blocking; the event is dropped when the
// channel is full.
func (e *Engine) sendEventLocked(ev Event) {
	select {
	case e.eventCh <- ev:
	case <-e.ctx.Done():
	default:
		zlog.Debug().Msgf("Dropped %s event", ev.Type)
	}
}

// sendBlocking delivers events the consumer must not miss. Never call with e.mu held.
func (e *Engine) sendBlocking(ev Event) {
	select {
	case e.eventCh <- ev:
	case <-e.ctx.Done():
	}
}

func clampVolume(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// applyVolume maps a linear gain onto the log-scale effect.
func applyVolume(g *effects.Volume, v float64) {
	if v <= 0 {
		g.Silent = true
		g.Volume = 0
		return
	}
	g.Silent = false
	g.Volume = math.Log2(v)
}
