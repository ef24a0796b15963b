package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
)

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfileDefaults(t *testing.T) {
	p, err := loadProfile("")
	if err != nil {
		t.Fatal(err)
	}
	if *p != (profile{}) {
		t.Errorf("default profile = %+v", p)
	}
	cc := p.chunkerConfig()
	if cc.Format != pcm.Wire || cc.ChunkBytes != 0 {
		t.Errorf("chunkerConfig = %+v", cc)
	}
}

func TestLoadProfile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "p.yaml", "chunk_bytes: 4800\nplayback_buffer: 9600\noutbound_queue: 16\nlatency_ms: 40\ncapture_rate: 48000\n"},
		{"json", "p.json", `{"chunk_bytes":4800,"playback_buffer":9600,"outbound_queue":16,"latency_ms":40,"capture_rate":48000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := loadProfile(writeProfile(t, tt.file, tt.content))
			if err != nil {
				t.Fatal(err)
			}
			want := profile{ChunkBytes: 4800, PlaybackBuffer: 9600, OutboundQueue: 16, LatencyMS: 40, CaptureRate: 48000}
			if *p != want {
				t.Errorf("profile = %+v, want %+v", *p, want)
			}
			o := p.opener()
			if o.Latency != 40*time.Millisecond || o.CaptureRate != 48000 || o.PlaybackRate != 0 {
				t.Errorf("opener = %+v", o)
			}
			cc := p.chunkerConfig()
			if cc.ChunkBytes != 4800 || cc.PlaybackBuffer != 9600 {
				t.Errorf("chunkerConfig = %+v", cc)
			}
		})
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative chunk", "chunk_bytes: -1\n"},
		{"negative latency", "latency_ms: -20\n"},
		{"unsupported rate", "capture_rate: 44100\n"},
		{"unsupported playback rate", "playback_rate: 8000\n"},
		{"not yaml", "chunk_bytes: [1, 2\n"},
		{"unknown key", "chunk_size: 3200\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadProfile(writeProfile(t, "p.yaml", tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := loadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}
