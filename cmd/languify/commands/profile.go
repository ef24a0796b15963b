package commands

import (
	"fmt"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/audio/chunker"
	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
	"github.com/princeofnothin/teste-languify/pkg/audio/portaudio"
	"github.com/princeofnothin/teste-languify/pkg/cli"
)

// profile tunes the audio and transport of a talk session. Zero fields take
// the library defaults.
//
//	chunk_bytes: 3200
//	playback_buffer: 12800
//	outbound_queue: 256
//	latency_ms: 20
//	capture_rate: 48000
type profile struct {
	ChunkBytes     int `json:"chunk_bytes" yaml:"chunk_bytes"`
	PlaybackBuffer int `json:"playback_buffer" yaml:"playback_buffer"`
	OutboundQueue  int `json:"outbound_queue" yaml:"outbound_queue"`
	LatencyMS      int `json:"latency_ms" yaml:"latency_ms"`
	CaptureRate    int `json:"capture_rate" yaml:"capture_rate"`
	PlaybackRate   int `json:"playback_rate" yaml:"playback_rate"`
}

// loadProfile reads the profile at path, or returns defaults for "".
func loadProfile(path string) (*profile, error) {
	p := &profile{}
	if path == "" {
		return p, nil
	}
	if err := cli.LoadFile(path, p); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p *profile) validate() error {
	for name, v := range map[string]int{
		"chunk_bytes":     p.ChunkBytes,
		"playback_buffer": p.PlaybackBuffer,
		"outbound_queue":  p.OutboundQueue,
		"latency_ms":      p.LatencyMS,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	for name, rate := range map[string]int{"capture_rate": p.CaptureRate, "playback_rate": p.PlaybackRate} {
		if rate == 0 {
			continue
		}
		if _, err := pcm.FormatForRate(rate); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (p *profile) chunkerConfig() *chunker.Config {
	return &chunker.Config{
		Format:         pcm.Wire,
		ChunkBytes:     p.ChunkBytes,
		PlaybackBuffer: p.PlaybackBuffer,
	}
}

func (p *profile) opener() *portaudio.Opener {
	return &portaudio.Opener{
		Latency:      time.Duration(p.LatencyMS) * time.Millisecond,
		CaptureRate:  p.CaptureRate,
		PlaybackRate: p.PlaybackRate,
	}
}
