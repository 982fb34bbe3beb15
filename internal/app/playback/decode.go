package playback

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/osa030/queuebox/internal/app/cache"
)

// wavHeaderLen is the size of a canonical WAVE header.
const wavHeaderLen = 44

// decoded is an opened resource. Its decoder runs on its own goroutine and
// fills the ring; only that goroutine touches stream.
type decoded struct {
	stream    beep.StreamSeekCloser
	format    beep.Format
	container cache.Format
	length    int // frames, 0 when unknown
	res       *cache.Resource
	reader    *cache.Reader
	ring      *sampleRing
	seekable  bool
}

// streamingReader hides Seek so the MP3 decoder does not scan a body that is
// still arriving for its length.
type streamingReader struct {
	r *cache.Reader
}

func (s streamingReader) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s streamingReader) Close() error { return s.r.Close() }

// decode opens res and starts decoding ahead into the ring.
// A WAV body seeks by offset, so it stays seekable while streaming.
func decode(res *cache.Resource) (*decoded, error) {
	rd := res.NewReader()
	complete := res.IsComplete() && res.Err() == nil
	seekable := complete || res.Format() == cache.FormatWAV

	var src io.ReadCloser = rd
	if !seekable {
		src = streamingReader{r: rd}
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch res.Format() {
	case cache.FormatMP3:
		stream, format, err = mp3.Decode(src)
	case cache.FormatWAV:
		stream, format, err = wav.Decode(src)
	default:
		err = errors.Wrapf(ErrUnsupportedFormat, "format %s", res.Format())
	}
	if err != nil {
		_ = rd.Close()
		return nil, errors.Wrap(err, "failed to decode audio")
	}

	d := &decoded{
		stream:    stream,
		format:    format,
		container: res.Format(),
		length:    max(stream.Len(), 0),
		res:       res,
		reader:    rd,
		ring:      newSampleRing(format.SampleRate.N(feedAhead)),
		seekable:  seekable,
	}
	go d.feed()
	return d, nil
}

// feed decodes into the ring until the ring is closed.
func (d *decoded) feed() {
	defer func() { _ = d.stream.Close() }()

	buf := make([][2]float64, feedChunk)
	at := 0
	for {
		gen, target, seek, ok := d.ring.next()
		if !ok {
			return
		}
		if seek {
			if err := d.stream.Seek(target); err != nil {
				d.ring.finish(gen, errors.Wrapf(err, "failed to seek to frame %d", target))
				continue
			}
			at = target
		}

		n, more := d.stream.Stream(buf)
		if n > 0 {
			if !d.ring.push(gen, buf[:n]) {
				continue
			}
			at += n
		}
		// Decoders report (0, true) forever on a body that ends early
		if n == 0 || !more {
			d.ring.finish(gen, d.endErr(at))
		}
	}
}

// endErr explains an end of stream at frame at, nil when the song is complete.
func (d *decoded) endErr(at int) error {
	if err := d.res.Err(); err != nil {
		return err
	}
	// A WAVE header announces the exact data size
	if d.container == cache.FormatWAV && d.length > 0 && at < d.length {
		return errors.Wrapf(ErrTruncated, "body ended at frame %d of %d", at, d.length)
	}
	return d.stream.Err()
}

// reachable reports whether frame n can be sought to without waiting for
// the download.
func (d *decoded) reachable(n int) bool {
	if d.res.IsComplete() {
		return true
	}
	width := d.format.Width()
	if d.container != cache.FormatWAV || width <= 0 {
		return false
	}
	return int64(n)*int64(width)+wavHeaderLen <= d.res.Size()
}

// close stops the decoder. A Read blocked on the download returns at once.
func (d *decoded) close() {
	d.ring.close()
	_ = d.reader.Close()
}
