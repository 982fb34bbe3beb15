package fetch

import (
	"bytes"

	"github.com/osa030/queuebox/internal/app/cache"
)

// sniffLen is the number of leading bytes needed to recognize a format.
const sniffLen = 12

// Sniff recognizes MP3 and WAV bodies from their leading bytes.
func Sniff(head []byte) cache.Format {
	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return cache.FormatWAV
	case len(head) >= 3 && bytes.Equal(head[0:3], []byte("ID3")):
		return cache.FormatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return cache.FormatMP3
	default:
		return cache.FormatUnknown
	}
}
