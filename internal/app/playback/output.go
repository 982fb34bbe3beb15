package playback

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Output drives a streamer in real time. The streamer must not block.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer) error
	Clear()
	Close()
}

// ClockOutput pulls samples on a ticker and discards them. It paces playback
// exactly like a sound card would, without needing one.
type ClockOutput struct {
	mu sync.Mutex

	rate    beep.SampleRate
	tick    time.Duration
	current beep.Streamer
	buf     [][2]float64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewClockOutput starts a clock output pulling at rate, tick by tick.
func NewClockOutput(rate beep.SampleRate, tick time.Duration) *ClockOutput {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	o := &ClockOutput{
		rate: rate,
		tick: tick,
		buf:  make([][2]float64, rate.N(tick)),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go o.run()
	return o
}

// SampleRate returns the rate samples are pulled at.
func (o *ClockOutput) SampleRate() beep.SampleRate {
	return o.rate
}

// Play replaces whatever was playing.
func (o *ClockOutput) Play(s beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = s
	return nil
}

// Clear stops pulling from the current streamer.
func (o *ClockOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = nil
}

// Close stops the ticker goroutine.
func (o *ClockOutput) Close() {
	o.stopOnce.Do(func() { close(o.stop) })
	<-o.done
}

func (o *ClockOutput) run() {
	defer close(o.done)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.pull()
		}
	}
}

func (o *ClockOutput) pull() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return
	}
	n, ok := o.current.Stream(o.buf)
	if !ok || n < len(o.buf) {
		o.current = nil
	}
}
