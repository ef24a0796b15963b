package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Converter converts blocks of PCM from one format to another. It keeps the
// filter state between calls, so consecutive blocks of one stream must go
// through the same Converter.
type Converter struct {
	src, dst Format

	mu      sync.Mutex
	rs      resampling.Resampler // nil when only channels differ
	partial []byte               // trailing bytes short of a source frame
}

// NewConverter creates a Converter from src to dst.
func NewConverter(src, dst Format) (*Converter, error) {
	if src.SampleRate <= 0 || dst.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid sample rate %d -> %d", src.SampleRate, dst.SampleRate)
	}
	c := &Converter{src: src, dst: dst}
	if src.SampleRate != dst.SampleRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(src.SampleRate),
			OutputRate: float64(dst.SampleRate),
			Channels:   dst.channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: create: %w", err)
		}
		c.rs = rs
	}
	return c, nil
}

// Passthrough reports whether the formats are identical.
func (c *Converter) Passthrough() bool {
	return c.src == c.dst
}

// Convert returns in converted to the destination format. A trailing partial
// source frame is held back and prefixed to the next call. The result may be
// empty while the resampling filter fills up.
func (c *Converter) Convert(in []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.partial) > 0 {
		in = append(c.partial, in...)
		c.partial = nil
	}
	fb := c.src.sampleBytes()
	if rem := len(in) % fb; rem != 0 {
		c.partial = append([]byte(nil), in[len(in)-rem:]...)
		in = in[:len(in)-rem]
	}
	if len(in) == 0 {
		return nil, nil
	}

	buf := convertChannels(in, c.src, c.dst)
	if c.rs == nil {
		return buf, nil
	}

	input := make([]float64, len(buf)/2)
	for i := range input {
		sample := int16(buf[i*2]) | int16(buf[i*2+1])<<8
		input[i] = float64(sample) / 32768.0
	}
	output, err := c.rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, s := range output {
		var sample int16
		switch {
		case s >= 1.0:
			sample = 32767
		case s <= -1.0:
			sample = -32768
		default:
			sample = int16(s * 32767.0)
		}
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}
	return out[:len(out)/c.dst.sampleBytes()*c.dst.sampleBytes()], nil
}

// Reader reads src-format audio from an underlying reader and yields it in the
// destination format.
type Reader struct {
	conv  *Converter
	src   io.Reader
	ratio float64

	mu       sync.Mutex
	readBuf  []byte
	leftover []byte
	closeErr error
}

// NewReader creates a Reader converting r from srcFmt to dstFmt.
func NewReader(r io.Reader, srcFmt, dstFmt Format) (*Reader, error) {
	conv, err := NewConverter(srcFmt, dstFmt)
	if err != nil {
		return nil, err
	}
	return &Reader{
		conv:  conv,
		src:   r,
		ratio: float64(srcFmt.SampleRate*srcFmt.sampleBytes()) / float64(dstFmt.SampleRate*dstFmt.sampleBytes()),
	}, nil
}

// Read fills p with converted audio. It returns a multiple of the destination
// frame size and io.ErrShortBuffer when p cannot hold one frame.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	fb := r.conv.dst.sampleBytes()
	if len(p) < fb {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fb*fb]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	if r.closeErr != nil {
		return 0, r.closeErr
	}

	want := int(float64(len(p))*r.ratio) + r.conv.src.sampleBytes()
	want = want / r.conv.src.sampleBytes() * r.conv.src.sampleBytes()
	if cap(r.readBuf) < want {
		r.readBuf = make([]byte, want)
	}
	// A read shorter than one source frame yields no output yet.
	var out []byte
	for len(out) == 0 {
		rn, readErr := r.src.Read(r.readBuf[:want])
		if rn > 0 {
			var err error
			if out, err = r.conv.Convert(r.readBuf[:rn]); err != nil {
				return 0, err
			}
		}
		if readErr != nil {
			n := copy(p, out)
			if n < len(out) {
				r.leftover = append(r.leftover, out[n:]...)
			}
			return n, readErr
		}
	}
	n := copy(p, out)
	if n < len(out) {
		r.leftover = append(r.leftover, out[n:]...)
	}
	return n, nil
}

// Close marks the reader closed. Buffered output is still returned; after that
// Read reports io.ErrClosedPipe. The underlying reader is not closed.
func (r *Reader) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError is like Close but later reads return err.
func (r *Reader) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	return nil
}

// Writer converts audio written to it and forwards it to an underlying
// writer.
type Writer struct {
	conv *Converter
	dst  io.Writer
}

// NewWriter creates a Writer converting from srcFmt to dstFmt before writing
// to w.
func NewWriter(w io.Writer, srcFmt, dstFmt Format) (*Writer, error) {
	conv, err := NewConverter(srcFmt, dstFmt)
	if err != nil {
		return nil, err
	}
	return &Writer{conv: conv, dst: w}, nil
}

// Write converts p and writes the result. It reports len(p) on success even
// when the filter held some output back.
func (w *Writer) Write(p []byte) (int, error) {
	out, err := w.conv.Convert(p)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return len(p), nil
	}
	if _, err := w.dst.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func convertChannels(in []byte, src, dst Format) []byte {
	switch {
	case src.Stereo == dst.Stereo:
		return in
	case src.Stereo:
		out := make([]byte, len(in)/2)
		for i := range len(in) / 4 {
			l := int16(in[i*4]) | int16(in[i*4+1])<<8
			r := int16(in[i*4+2]) | int16(in[i*4+3])<<8
			m := int16((int32(l) + int32(r)) / 2)
			out[i*2] = byte(m)
			out[i*2+1] = byte(m >> 8)
		}
		return out
	default:
		out := make([]byte, len(in)*2)
		for i := range len(in) / 2 {
			s0, s1 := in[i*2], in[i*2+1]
			out[i*4], out[i*4+1] = s0, s1
			out[i*4+2], out[i*4+3] = s0, s1
		}
		return out
	}
}
