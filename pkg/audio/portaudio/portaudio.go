// Package portaudio binds the default PortAudio input and output devices to
// the chunker's capture and playback interfaces.
//
// It uses CGO and needs portaudio installed via pkg-config
// (brew install portaudio, apt install portaudio19-dev).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// PaStream is opaque; pass it around as void* to keep cgo happy.
static PaError la_open(void **stream, PaDeviceIndex device, int input,
                       int channels, double rate, unsigned long frames,
                       PaTime latency) {
    PaStreamParameters p;
    memset(&p, 0, sizeof(p));
    p.device = device;
    p.channelCount = channels;
    p.sampleFormat = paInt16;
    p.suggestedLatency = latency;
    return Pa_OpenStream((PaStream**)stream,
                         input ? &p : NULL, input ? NULL : &p,
                         rate, frames, paClipOff, NULL, NULL);
}

static PaError la_start(void *s) { return Pa_StartStream((PaStream*)s); }
static PaError la_abort(void *s) { return Pa_AbortStream((PaStream*)s); }
static PaError la_close(void *s) { return Pa_CloseStream((PaStream*)s); }

static PaError la_read(void *s, void *buf, unsigned long frames) {
    return Pa_ReadStream((PaStream*)s, buf, frames);
}

static PaError la_write(void *s, const void *buf, unsigned long frames) {
    return Pa_WriteStream((PaStream*)s, buf, frames);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
)

var (
	initOnce sync.Once
	initErr  error
)

func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return fmt.Errorf("portaudio: %s", C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library. It is safe to call multiple
// times; every other function in the package calls it.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate releases the PortAudio library. Call it once at exit, after all
// streams are closed.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// DeviceInfo describes an audio device.
type DeviceInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	MaxInputChannels  int     `json:"max_input_channels" yaml:"max_input_channels"`
	MaxOutputChannels int     `json:"max_output_channels" yaml:"max_output_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	// Latencies are the low-latency defaults in seconds.
	InputLatency    float64 `json:"input_latency,omitempty" yaml:"input_latency,omitempty"`
	OutputLatency   float64 `json:"output_latency,omitempty" yaml:"output_latency,omitempty"`
	IsDefaultInput  bool    `json:"is_default_input,omitempty" yaml:"is_default_input,omitempty"`
	IsDefaultOutput bool    `json:"is_default_output,omitempty" yaml:"is_default_output,omitempty"`
}

func deviceInfo(idx C.PaDeviceIndex) (DeviceInfo, bool) {
	info := C.Pa_GetDeviceInfo(idx)
	if info == nil {
		return DeviceInfo{}, false
	}
	return DeviceInfo{
		Index:             int(idx),
		Name:              C.GoString(info.name),
		MaxInputChannels:  int(info.maxInputChannels),
		MaxOutputChannels: int(info.maxOutputChannels),
		DefaultSampleRate: float64(info.defaultSampleRate),
		InputLatency:      float64(info.defaultLowInputLatency),
		OutputLatency:     float64(info.defaultLowOutputLatency),
		IsDefaultInput:    idx == C.Pa_GetDefaultInputDevice(),
		IsDefaultOutput:   idx == C.Pa_GetDefaultOutputDevice(),
	}, true
}

// Devices lists the audio devices known to the host.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	count := C.Pa_GetDeviceCount()
	if count < 0 {
		return nil, paError(C.PaError(count))
	}
	devices := make([]DeviceInfo, 0, int(count))
	for i := C.PaDeviceIndex(0); i < count; i++ {
		if d, ok := deviceInfo(i); ok {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// DefaultInputDevice returns the default microphone.
func DefaultInputDevice() (*DeviceInfo, error) {
	return defaultDevice("input", func() C.PaDeviceIndex { return C.Pa_GetDefaultInputDevice() })
}

// DefaultOutputDevice returns the default speaker.
func DefaultOutputDevice() (*DeviceInfo, error) {
	return defaultDevice("output", func() C.PaDeviceIndex { return C.Pa_GetDefaultOutputDevice() })
}

func defaultDevice(kind string, index func() C.PaDeviceIndex) (*DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	idx := index()
	if idx == C.paNoDevice {
		return nil, fmt.Errorf("portaudio: no default %s device", kind)
	}
	d, ok := deviceInfo(idx)
	if !ok {
		return nil, fmt.Errorf("portaudio: no info for %s device %d", kind, int(idx))
	}
	return &d, nil
}

// String describes the device on one line.
func (d DeviceInfo) String() string {
	marker := ""
	if d.IsDefaultInput {
		marker += " [default input]"
	}
	if d.IsDefaultOutput {
		marker += " [default output]"
	}
	return fmt.Sprintf("%d: %s (in %d, out %d, %.0f Hz)%s",
		d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, marker)
}

var errStreamClosed = errors.New("portaudio: stream closed")

// stream is a blocking one-direction PortAudio stream moving int16 frames
// in host byte order, which is little-endian on every supported platform.
type stream struct {
	mu       sync.Mutex
	pa       unsafe.Pointer
	buf      unsafe.Pointer // C buffer of frames*frameSize bytes
	frames   int
	frameLen int
	closed   bool
}

// openStream opens and starts a stream on the default device. frames is
// the device buffer size, and the most a single read or write moves.
func openStream(input bool, f pcm.Format, frames int) (*stream, error) {
	var dev *DeviceInfo
	var err error
	latency := 0.0
	if input {
		if dev, err = DefaultInputDevice(); err == nil {
			latency = dev.InputLatency
		}
	} else {
		if dev, err = DefaultOutputDevice(); err == nil {
			latency = dev.OutputLatency
		}
	}
	if err != nil {
		return nil, err
	}

	in := C.int(0)
	if input {
		in = 1
	}
	var pa unsafe.Pointer
	if err := paError(C.la_open(&pa, C.PaDeviceIndex(dev.Index), in,
		C.int(f.Channels()), C.double(f.SampleRate()), C.ulong(frames), C.PaTime(latency))); err != nil {
		return nil, err
	}
	if err := paError(C.la_start(pa)); err != nil {
		C.la_close(pa)
		return nil, err
	}

	frameLen := f.FrameBytes()
	return &stream{
		pa:       pa,
		buf:      C.malloc(C.size_t(frames * frameLen)),
		frames:   frames,
		frameLen: frameLen,
	}, nil
}

// read fills p, which must hold a whole number of frames and at most one
// device buffer.
func (s *stream) read(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	n := len(p) / s.frameLen
	if err := paError(C.la_read(s.pa, s.buf, C.ulong(n))); err != nil {
		return err
	}
	copy(p, unsafe.Slice((*byte)(s.buf), n*s.frameLen))
	return nil
}

// write plays p under the same constraints as read.
func (s *stream) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	n := len(p) / s.frameLen
	copy(unsafe.Slice((*byte)(s.buf), n*s.frameLen), p)
	return paError(C.la_write(s.pa, s.buf, C.ulong(n)))
}

// close aborts pending audio and frees the stream. It waits for an in-flight
// read or write, which lasts at most one device buffer.
func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.la_abort(s.pa)
	err := paError(C.la_close(s.pa))
	C.free(s.buf)
	return err
}
