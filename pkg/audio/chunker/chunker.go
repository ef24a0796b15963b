package chunker

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
	"github.com/princeofnothin/teste-languify/pkg/buffer"
	"github.com/princeofnothin/teste-languify/pkg/encoding"
)

const (
	// DefaultChunkBytes is the capture read size: 1600 samples, about 66ms
	// at the wire format.
	DefaultChunkBytes = 3200

	// DefaultPlaybackBuffer bounds decoded audio waiting for the speaker.
	// Four times the chunk size, about 266ms.
	DefaultPlaybackBuffer = 4 * DefaultChunkBytes
)

// Config configures a Chunker. The zero value uses the wire format and the
// default sizes.
type Config struct {
	// Format of both devices. Defaults to pcm.Wire.
	Format pcm.Format

	// ChunkBytes is the capture read buffer size.
	ChunkBytes int

	// PlaybackBuffer is the capacity in bytes of the playback queue.
	PlaybackBuffer int

	Logger *slog.Logger
}

// Chunker captures and plays audio through devices obtained from a
// DeviceOpener. It is safe for concurrent use.
type Chunker struct {
	devices      DeviceOpener
	format       pcm.Format
	chunkBytes   int
	playbackSize int
	log          *slog.Logger

	mu       sync.Mutex
	released bool
	capture  *captureRun
	playback *playbackRun
}

type captureRun struct {
	dev      CaptureDevice
	stopping atomic.Bool
	done     chan struct{}
}

type playbackRun struct {
	dev  PlaybackDevice
	buf  *buffer.BlockBuffer[byte]
	done chan struct{}
}

// New creates a Chunker. No device is opened until StartCapture or PlayChunk.
func New(devices DeviceOpener, cfg *Config) *Chunker {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Chunker{
		devices:      devices,
		format:       cfg.Format,
		chunkBytes:   cfg.ChunkBytes,
		playbackSize: cfg.PlaybackBuffer,
		log:          cfg.Logger,
	}
	if c.format == 0 {
		c.format = pcm.Wire
	}
	frame := c.format.FrameBytes()
	if c.chunkBytes <= 0 {
		c.chunkBytes = DefaultChunkBytes
	}
	c.chunkBytes -= c.chunkBytes % frame
	if c.chunkBytes == 0 {
		c.chunkBytes = frame
	}
	if c.playbackSize <= 0 {
		c.playbackSize = 4 * c.chunkBytes
	}
	c.playbackSize -= c.playbackSize % frame
	if c.playbackSize < c.chunkBytes {
		c.playbackSize = c.chunkBytes
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Format returns the PCM format of both devices.
func (c *Chunker) Format() pcm.Format {
	return c.format
}

// Capturing reports whether a capture run is active.
func (c *Chunker) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

// StartCapture opens the capture device and starts delivering encoded chunks
// to h. It is a no-op while capture is already running.
func (c *Chunker) StartCapture(h CaptureHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrReleased
	}
	if c.capture != nil {
		return nil
	}

	dev, err := c.devices.OpenCapture(c.format)
	if err != nil {
		c.log.Error("open capture device", "format", c.format, "error", err)
		return &Error{Kind: KindDevice, Op: "open capture", Err: err}
	}

	run := &captureRun{dev: dev, done: make(chan struct{})}
	c.capture = run
	go c.captureLoop(run, h)

	c.log.Debug("capture started", "format", c.format, "chunk_bytes", c.chunkBytes)
	return nil
}

func (c *Chunker) captureLoop(run *captureRun, h CaptureHandler) {
	defer close(run.done)

	buf := make([]byte, c.chunkBytes)
	for {
		n, err := run.dev.Read(buf)
		if n > 0 {
			h.HandleChunk(EncodedChunk(encoding.EncodeStdBase64(buf[:n])))
		}
		if err == nil {
			continue
		}
		if run.stopping.Load() {
			return
		}
		if !c.endCapture(run) {
			return
		}
		c.log.Error("capture read failed", "error", err)
		h.HandleCaptureError(&Error{Kind: KindDevice, Op: "read capture", Err: err})
		return
	}
}

// endCapture detaches a run that ended on its own. It reports false when
// StopCapture got there first.
func (c *Chunker) endCapture(run *captureRun) bool {
	c.mu.Lock()
	current := c.capture == run
	if current {
		c.capture = nil
	}
	c.mu.Unlock()

	if current {
		if err := run.dev.Close(); err != nil {
			c.log.Warn("close capture device", "error", err)
		}
	}
	return current
}

// StopCapture stops the active capture run and waits until its goroutine has
// exited, so the handler receives nothing after StopCapture returns. It is a
// no-op when not capturing.
func (c *Chunker) StopCapture() {
	c.mu.Lock()
	run := c.capture
	c.capture = nil
	c.mu.Unlock()

	if run == nil {
		return
	}
	run.stopping.Store(true)
	if err := run.dev.Close(); err != nil {
		c.log.Warn("close capture device", "error", err)
	}
	<-run.done
	c.log.Debug("capture stopped")
}

// PlayChunk decodes chunk and queues every decoded byte for playback,
// opening the playback device on first use. Chunks need not hold whole
// frames; a sample split across two chunks reaches the device intact. It
// blocks only while the playback buffer is full. An empty chunk is a no-op.
func (c *Chunker) PlayChunk(chunk EncodedChunk) error {
	if chunk == "" {
		return nil
	}
	data, err := encoding.DecodeStdBase64(string(chunk))
	if err != nil {
		c.log.Warn("drop malformed audio chunk", "len", len(chunk), "error", err)
		return &Error{Kind: KindMalformed, Op: "decode", Err: err}
	}
	if len(data) == 0 {
		return nil
	}

	pb, err := c.playbackRun()
	if err != nil {
		return err
	}
	if _, err := pb.buf.Write(data); err != nil {
		if cause := pb.buf.Error(); cause != nil && !errors.Is(cause, ErrReleased) {
			return cause
		}
		return ErrReleased
	}
	return nil
}

func (c *Chunker) playbackRun() (*playbackRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	if c.playback != nil {
		// A run whose device failed is replaced on the next chunk.
		if c.playback.buf.Error() == nil {
			return c.playback, nil
		}
		c.playback = nil
	}

	dev, err := c.devices.OpenPlayback(c.format)
	if err != nil {
		c.log.Error("open playback device", "format", c.format, "error", err)
		return nil, &Error{Kind: KindDevice, Op: "open playback", Err: err}
	}
	pb := &playbackRun{
		dev:  dev,
		buf:  buffer.BlockN[byte](c.playbackSize),
		done: make(chan struct{}),
	}
	c.playback = pb
	go c.playbackLoop(pb)
	return pb, nil
}

func (c *Chunker) playbackLoop(pb *playbackRun) {
	defer close(pb.done)

	buf := make([]byte, c.chunkBytes)
	for {
		n, err := pb.buf.Read(buf)
		if n > 0 {
			if _, werr := pb.dev.Write(buf[:n]); werr != nil {
				c.log.Error("playback write failed", "error", werr)
				_ = pb.buf.CloseWithError(&Error{Kind: KindDevice, Op: "write playback", Err: werr})
				if cerr := pb.dev.Close(); cerr != nil {
					c.log.Warn("close playback device", "error", cerr)
				}
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Release stops capture, discards queued playback audio and closes both
// devices. It is safe to call more than once.
func (c *Chunker) Release() {
	c.StopCapture()

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	pb := c.playback
	c.playback = nil
	c.mu.Unlock()

	if pb == nil {
		return
	}
	if dropped := pb.buf.Len(); dropped > 0 {
		c.log.Debug("discard queued playback", "bytes", dropped)
	}
	_ = pb.buf.CloseWithError(ErrReleased)
	if err := pb.dev.Close(); err != nil {
		c.log.Warn("close playback device", "error", err)
	}
	<-pb.done
}
