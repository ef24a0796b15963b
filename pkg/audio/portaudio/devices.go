package portaudio

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/audio/chunker"
	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
	"github.com/princeofnothin/teste-languify/pkg/audio/resampler"
)

// DefaultLatency is the device buffer duration.
const DefaultLatency = 20 * time.Millisecond

// Opener opens the default devices for a chunker. When a device cannot run
// at the requested format, it runs at its own rate and the audio is resampled.
type Opener struct {
	// Latency is the duration of one device buffer. Defaults to
	// DefaultLatency.
	Latency time.Duration

	// CaptureRate and PlaybackRate force the device sample rate. Zero means
	// the requested format when supported, else the device default rate.
	CaptureRate  int
	PlaybackRate int
}

var _ chunker.DeviceOpener = (*Opener)(nil)

func (o *Opener) latency() time.Duration {
	if o.Latency > 0 {
		return o.Latency
	}
	return DefaultLatency
}

// deviceFormat picks the format to open a device at.
func deviceFormat(want pcm.Format, forced int, info func() (*DeviceInfo, error)) (pcm.Format, error) {
	if forced > 0 {
		return pcm.FormatForRate(forced)
	}
	d, err := info()
	if err != nil {
		return 0, err
	}
	rate := int(math.Round(d.DefaultSampleRate))
	if rate == want.SampleRate() {
		return want, nil
	}
	if f, err := pcm.FormatForRate(rate); err == nil {
		return f, nil
	}
	// Let the host API convert.
	return want, nil
}

// OpenCapture implements chunker.DeviceOpener.
func (o *Opener) OpenCapture(f pcm.Format) (chunker.CaptureDevice, error) {
	devFmt, err := deviceFormat(f, o.CaptureRate, DefaultInputDevice)
	if err != nil {
		return nil, fmt.Errorf("portaudio: capture: %w", err)
	}
	in, err := NewInputStream(devFmt, o.latency())
	if err != nil {
		return nil, fmt.Errorf("portaudio: open input %s: %w", devFmt, err)
	}
	if devFmt == f {
		return in, nil
	}
	r, err := resampler.NewReader(in, resampler.FromPCM(devFmt), resampler.FromPCM(f))
	if err != nil {
		in.Close()
		return nil, err
	}
	return &resampledCapture{Reader: r, in: in}, nil
}

// OpenPlayback implements chunker.DeviceOpener.
func (o *Opener) OpenPlayback(f pcm.Format) (chunker.PlaybackDevice, error) {
	devFmt, err := deviceFormat(f, o.PlaybackRate, DefaultOutputDevice)
	if err != nil {
		return nil, fmt.Errorf("portaudio: playback: %w", err)
	}
	out, err := NewOutputStream(devFmt, o.latency())
	if err != nil {
		return nil, fmt.Errorf("portaudio: open output %s: %w", devFmt, err)
	}
	if devFmt == f {
		return out, nil
	}
	w, err := resampler.NewWriter(out, resampler.FromPCM(f), resampler.FromPCM(devFmt))
	if err != nil {
		out.Close()
		return nil, err
	}
	return &resampledPlayback{Writer: w, out: out}, nil
}

type resampledCapture struct {
	*resampler.Reader
	in io.Closer
}

func (c *resampledCapture) Close() error {
	err := c.in.Close()
	c.Reader.Close()
	return err
}

type resampledPlayback struct {
	*resampler.Writer
	out io.Closer
}

func (p *resampledPlayback) Close() error {
	return p.out.Close()
}
