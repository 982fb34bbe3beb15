//go:build (linux && cgo) || windows || darwin

package playback

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerAvailable indicates whether a sound card output exists in this build.
const SpeakerAvailable = true

var speakerInit struct {
	once sync.Once
	err  error
}

// SpeakerOutput plays through the system sound card.
type SpeakerOutput struct {
	rate beep.SampleRate
}

// NewSpeakerOutput initializes the sound card at rate with the given buffer length.
// The sound card is initialized once per process.
func NewSpeakerOutput(rate beep.SampleRate, buffer time.Duration) (*SpeakerOutput, error) {
	speakerInit.once.Do(func() {
		speakerInit.err = speaker.Init(rate, rate.N(buffer))
	})
	if speakerInit.err != nil {
		return nil, errors.Wrap(speakerInit.err, "failed to initialize speaker")
	}
	return &SpeakerOutput{rate: rate}, nil
}

// SampleRate returns the rate the speaker was initialized with.
func (o *SpeakerOutput) SampleRate() beep.SampleRate {
	return o.rate
}

// Play replaces whatever was playing.
func (o *SpeakerOutput) Play(s beep.Streamer) error {
	speaker.Clear()
	speaker.Play(s)
	return nil
}

// Clear silences the speaker.
func (o *SpeakerOutput) Clear() {
	speaker.Clear()
}

// Close silences the speaker. The device stays initialized.
func (o *SpeakerOutput) Close() {
	speaker.Clear()
}
