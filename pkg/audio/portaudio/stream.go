package portaudio

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
)

// InputStream captures audio from the default input device.
type InputStream struct {
	s      *stream
	format pcm.Format
	closed atomic.Bool

	mu      sync.Mutex
	block   []byte // one device buffer
	pending []byte // unread tail of block
}

// NewInputStream opens and starts a capture stream. Each device read covers
// bufferDuration of audio (e.g. 20ms).
func NewInputStream(format pcm.Format, bufferDuration time.Duration) (*InputStream, error) {
	frames := max(int(format.SamplesInDuration(bufferDuration)), 1)
	s, err := openStream(true, format, frames)
	if err != nil {
		return nil, err
	}
	return &InputStream{
		s:      s,
		format: format,
		block:  make([]byte, frames*format.FrameBytes()),
	}, nil
}

// Read implements io.Reader over little-endian int16 samples. It blocks for
// at most one device buffer and returns io.EOF once the stream is closed.
func (is *InputStream) Read(p []byte) (int, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if len(is.pending) == 0 {
		if is.closed.Load() {
			return 0, io.EOF
		}
		if err := is.s.read(is.block); err != nil {
			if is.closed.Load() {
				return 0, io.EOF
			}
			return 0, err
		}
		is.pending = is.block
	}
	n := copy(p, is.pending)
	is.pending = is.pending[n:]
	return n, nil
}

// Format returns the PCM format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// Close stops the stream. A Read blocked on the device returns io.EOF once
// the current buffer completes.
func (is *InputStream) Close() error {
	if is.closed.Swap(true) {
		return nil
	}
	return is.s.close()
}

// OutputStream plays audio to the default output device.
type OutputStream struct {
	s       *stream
	format  pcm.Format
	maxSize int

	mu     sync.Mutex
	framer pcm.Framer
}

// NewOutputStream opens and starts a playback stream writing at most
// bufferDuration of audio per device call.
func NewOutputStream(format pcm.Format, bufferDuration time.Duration) (*OutputStream, error) {
	frames := max(int(format.SamplesInDuration(bufferDuration)), 1)
	s, err := openStream(false, format, frames)
	if err != nil {
		return nil, err
	}
	return &OutputStream{s: s, format: format, maxSize: frames * format.FrameBytes()}, nil
}

// Write implements io.Writer over little-endian int16 samples. It blocks
// until the device has accepted all whole frames. A trailing partial frame
// is held and played with the next Write.
func (os *OutputStream) Write(p []byte) (int, error) {
	os.mu.Lock()
	defer os.mu.Unlock()

	frames := os.framer.Next(p)
	for len(frames) > 0 {
		n := min(os.maxSize, len(frames))
		if err := os.s.write(frames[:n]); err != nil {
			return 0, err
		}
		frames = frames[n:]
	}
	return len(p), nil
}

// Format returns the PCM format.
func (os *OutputStream) Format() pcm.Format {
	return os.format
}

// Close stops and closes the stream.
func (os *OutputStream) Close() error {
	return os.s.close()
}
