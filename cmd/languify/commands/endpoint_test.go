package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/cli"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

func testConfig() *cli.Config {
	return &cli.Config{
		CurrentContext: "openai",
		Contexts: map[string]*cli.Context{
			"openai": {
				Name:       "openai",
				APIKey:     "sk-context",
				BaseURL:    "https://api.example.com/v1/realtime?model=m",
				Timeout:    3,
				MaxRetries: 2,
				Extra:      map[string]string{"header.x-client": "languify", "color": "blue"},
			},
			"local": {
				Name:    "local",
				BaseURL: "ws://127.0.0.1:8089/v1/realtime",
			},
		},
	}
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *cli.Config
		context string
		flag    string
		env     map[string]string
		wantURL string
		wantKey string
		wantCtx string
	}{
		{
			name:    "current context",
			cfg:     testConfig(),
			wantURL: "wss://api.example.com/v1/realtime?model=m",
			wantKey: "sk-context",
			wantCtx: "openai",
		},
		{
			name:    "named context",
			cfg:     testConfig(),
			context: "local",
			wantURL: "ws://127.0.0.1:8089/v1/realtime",
			wantCtx: "local",
		},
		{
			name:    "env overrides context",
			cfg:     testConfig(),
			env:     map[string]string{envRealtimeURL: "ws://env:1/rt", envAPIKey: "sk-env"},
			wantURL: "ws://env:1/rt",
			wantKey: "sk-env",
			wantCtx: "openai",
		},
		{
			name:    "flag overrides env",
			cfg:     testConfig(),
			flag:    "wss://flag/rt",
			env:     map[string]string{envRealtimeURL: "ws://env:1/rt"},
			wantURL: "wss://flag/rt",
			wantKey: "sk-context",
			wantCtx: "openai",
		},
		{
			name:    "env without context",
			cfg:     &cli.Config{},
			env:     map[string]string{envRealtimeURL: "http://env:2/rt", envAPIKey: "sk-env"},
			wantURL: "ws://env:2/rt",
			wantKey: "sk-env",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := resolveEndpoint(tt.cfg, tt.context, tt.flag, env(tt.env))
			if err != nil {
				t.Fatal(err)
			}
			if ep.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", ep.URL, tt.wantURL)
			}
			if ep.APIKey != tt.wantKey {
				t.Errorf("APIKey = %q, want %q", ep.APIKey, tt.wantKey)
			}
			if ep.Context != tt.wantCtx {
				t.Errorf("Context = %q, want %q", ep.Context, tt.wantCtx)
			}
		})
	}
}

func TestResolveEndpointSettings(t *testing.T) {
	ep, err := resolveEndpoint(testConfig(), "", "", env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if ep.DialTimeout != 3*time.Second {
		t.Errorf("DialTimeout = %v", ep.DialTimeout)
	}
	if ep.Retry.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", ep.Retry.MaxAttempts)
	}
	if got := ep.Headers.Get("X-Client"); got != "languify" {
		t.Errorf("X-Client = %q", got)
	}
	if len(ep.Headers) != 1 {
		t.Errorf("Headers = %v", ep.Headers)
	}

	ep, err = resolveEndpoint(testConfig(), "local", "", env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if ep.DialTimeout != realtime.DefaultDialTimeout || ep.Retry.MaxAttempts != 1 || ep.Headers != nil {
		t.Errorf("local endpoint = %+v", ep)
	}

	tc := ep.transportConfig(&profile{OutboundQueue: 8})
	if tc.URL != ep.URL || tc.OutboundQueue != 8 || tc.DialTimeout != ep.DialTimeout {
		t.Errorf("transportConfig = %+v", tc)
	}
}

func TestResolveEndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *cli.Config
		context string
		flag    string
	}{
		{"nothing configured", &cli.Config{}, "", ""},
		{"unknown context", testConfig(), "missing", ""},
		{"bad flag url", testConfig(), "", "ftp://host/rt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolveEndpoint(tt.cfg, tt.context, tt.flag, env(nil)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := resolveEndpoint(&cli.Config{}, "", "", env(nil))
	if errors.Is(err, cli.ErrNoContext) {
		t.Error("missing endpoint should not surface ErrNoContext")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "ws://host:1/rt", want: "ws://host:1/rt"},
		{in: "wss://host/rt?model=x", want: "wss://host/rt?model=x"},
		{in: "http://host/rt", want: "ws://host/rt"},
		{in: "https://host/rt", want: "wss://host/rt"},
		{in: "ftp://host/rt", wantErr: true},
		{in: "ws:///rt", wantErr: true},
		{in: "host/rt", wantErr: true},
		{in: "://bad", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("normalizeURL(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
