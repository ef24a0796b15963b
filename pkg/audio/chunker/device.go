package chunker

import (
	"io"

	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
)

// CaptureDevice yields raw little-endian PCM. Close must make a blocked Read
// return.
type CaptureDevice interface {
	io.ReadCloser
}

// PlaybackDevice consumes raw little-endian PCM. Writes are not frame
// aligned: a device that plays whole frames keeps a trailing partial frame
// until the next Write completes it.
type PlaybackDevice interface {
	io.WriteCloser
}

// DeviceOpener opens devices at a fixed PCM format.
type DeviceOpener interface {
	OpenCapture(f pcm.Format) (CaptureDevice, error)
	OpenPlayback(f pcm.Format) (PlaybackDevice, error)
}

// EncodedChunk is standard base64 (with padding, without line breaks) of a
// PCM chunk.
type EncodedChunk string

// PCMBytes returns the number of PCM bytes the chunk decodes to, assuming it
// is well formed.
func (c EncodedChunk) PCMBytes() int {
	n := len(c) / 4 * 3
	for i := len(c) - 1; i >= 0 && i >= len(c)-2 && c[i] == '='; i-- {
		n--
	}
	return n
}

// CaptureHandler receives the output of a capture run. Both methods are
// called from the capture goroutine.
type CaptureHandler interface {
	HandleChunk(EncodedChunk)
	// HandleCaptureError is called at most once, when the device fails
	// mid-stream. Capture has already ended when it is called.
	HandleCaptureError(error)
}

// CaptureFunc adapts a plain function to CaptureHandler. Capture errors are
// ignored; the chunker logs them.
type CaptureFunc func(EncodedChunk)

func (f CaptureFunc) HandleChunk(c EncodedChunk) { f(c) }

func (f CaptureFunc) HandleCaptureError(error) {}
