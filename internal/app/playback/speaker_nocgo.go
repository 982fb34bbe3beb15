//go:build !((linux && cgo) || windows || darwin)

package playback

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// SpeakerAvailable indicates whether a sound card output exists in this build.
// Sound card output requires cgo on linux.
const SpeakerAvailable = false

// SpeakerOutput is unavailable in this build.
type SpeakerOutput struct {
	ClockOutput
}

// NewSpeakerOutput always fails when built without cgo.
func NewSpeakerOutput(beep.SampleRate, time.Duration) (*SpeakerOutput, error) {
	return nil, ErrNoAudioDevice
}
