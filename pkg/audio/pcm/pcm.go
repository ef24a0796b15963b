package pcm

import (
	"fmt"
	"time"
)

// Format is a 16-bit little-endian mono PCM format. The zero value is
// L16Mono16K.
type Format int

const (
	L16Mono16K Format = iota
	L16Mono24K
	L16Mono48K
)

// Wire is the format exchanged with the realtime service in both directions.
const Wire = L16Mono24K

// sampleBytes is the size of one 16-bit mono sample frame.
const sampleBytes = 2

var rates = [...]int{
	L16Mono16K: 16000,
	L16Mono24K: 24000,
	L16Mono48K: 48000,
}

// FormatForRate returns the format with the given sample rate.
func FormatForRate(rate int) (Format, error) {
	for f, r := range rates {
		if r == rate {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("pcm: unsupported sample rate %d", rate)
}

// Valid reports whether f is one of the defined formats.
func (f Format) Valid() bool {
	return f >= 0 && int(f) < len(rates)
}

// SampleRate returns the sample rate in Hz. It panics on an invalid format.
func (f Format) SampleRate() int {
	if !f.Valid() {
		panic(fmt.Sprintf("pcm: invalid format %d", int(f)))
	}
	return rates[f]
}

// Channels returns the channel count, always 1.
func (f Format) Channels() int { return 1 }

// FrameBytes returns the size of one sample frame across all channels.
func (f Format) FrameBytes() int { return sampleBytes }

// SamplesInDuration returns the number of sample frames in d.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes holding d of audio.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * sampleBytes
}

// Duration returns how long n bytes of audio play for.
func (f Format) Duration(n int64) time.Duration {
	return time.Duration(n/sampleBytes) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns bytes per second.
func (f Format) BytesRate() int {
	return f.SampleRate() * sampleBytes
}

// Align truncates data to a whole number of frames.
func (f Format) Align(data []byte) []byte {
	return data[:len(data)/sampleBytes*sampleBytes]
}

// Split cuts data into consecutive frame-aligned pieces of at most d each.
// A trailing partial frame is dropped. The pieces share memory with data
// and have their capacity clipped, so appending to one cannot clobber the
// next.
func (f Format) Split(data []byte, d time.Duration) [][]byte {
	size := max(int(f.BytesInDuration(d)), sampleBytes)
	data = f.Align(data)

	out := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > 0 {
		n := min(size, len(data))
		out = append(out, data[:n:n])
		data = data[n:]
	}
	return out
}

// Framer regroups a byte stream into whole frames. Bytes of a frame split
// across calls are held until the frame is complete. The zero value is
// ready to use.
type Framer struct {
	partial [sampleBytes]byte
	n       int
}

// Next returns the whole frames available after appending p. The result
// may share memory with p.
func (fr *Framer) Next(p []byte) []byte {
	if fr.n > 0 {
		need := sampleBytes - fr.n
		if len(p) < need {
			fr.n += copy(fr.partial[fr.n:], p)
			return nil
		}
		out := make([]byte, 0, len(p)+fr.n)
		out = append(out, fr.partial[:fr.n]...)
		out = append(out, p...)
		p = out
		fr.n = 0
	}
	whole := len(p) / sampleBytes * sampleBytes
	fr.n = copy(fr.partial[:], p[whole:])
	return p[:whole]
}

// Pending returns the number of held bytes.
func (fr *Framer) Pending() int {
	return fr.n
}

// String returns the MIME-style description, e.g.
// "audio/L16; rate=24000; channels=1".
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("pcm.Format(%d)", int(f))
	}
	return fmt.Sprintf("audio/L16; rate=%d; channels=1", rates[f])
}
