package commands

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/cli"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

// Environment overrides, also read from the dotenv file.
const (
	envRealtimeURL = "LANGUIFY_REALTIME_URL"
	envAPIKey      = "LANGUIFY_API_KEY"
)

// endpoint is everything needed to dial a realtime session.
type endpoint struct {
	Context     string
	URL         string
	APIKey      string
	Headers     http.Header
	DialTimeout time.Duration
	Retry       realtime.RetryPolicy
}

// resolveEndpoint merges, lowest precedence first: the named or current
// context, the environment, and the --url flag.
func resolveEndpoint(cfg *cli.Config, name, urlFlag string, getenv func(string) string) (*endpoint, error) {
	ep := &endpoint{
		DialTimeout: realtime.DefaultDialTimeout,
		Retry:       realtime.RetryPolicy{MaxAttempts: 1},
	}

	ctx, err := cfg.ResolveContext(name)
	switch {
	case err == nil:
		ep.Context = ctx.Name
		ep.URL = ctx.BaseURL
		ep.APIKey = ctx.APIKey
		ep.DialTimeout = ctx.DialTimeout(realtime.DefaultDialTimeout)
		ep.Retry.MaxAttempts = 1 + max(ctx.MaxRetries, 0)
		for k, v := range ctx.Headers() {
			if ep.Headers == nil {
				ep.Headers = make(http.Header)
			}
			ep.Headers.Set(k, v)
		}
	case errors.Is(err, cli.ErrNoContext):
		// The environment alone may be enough.
	default:
		return nil, err
	}

	if v := getenv(envRealtimeURL); v != "" {
		ep.URL = v
	}
	if v := getenv(envAPIKey); v != "" {
		ep.APIKey = v
	}
	if urlFlag != "" {
		ep.URL = urlFlag
	}

	if ep.URL == "" {
		return nil, fmt.Errorf("no realtime endpoint: use -c, 'languify config use-context', %s or --url", envRealtimeURL)
	}
	u, err := normalizeURL(ep.URL)
	if err != nil {
		return nil, err
	}
	ep.URL = u
	return ep, nil
}

// normalizeURL accepts ws, wss, http and https URLs and returns the
// WebSocket form.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid endpoint URL %q: scheme must be ws or wss", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint URL %q: missing host", raw)
	}
	return u.String(), nil
}

// transportConfig builds the transport configuration for ep.
func (ep *endpoint) transportConfig(p *profile) *realtime.TransportConfig {
	return &realtime.TransportConfig{
		URL:           ep.URL,
		APIKey:        ep.APIKey,
		Headers:       ep.Headers,
		DialTimeout:   ep.DialTimeout,
		OutboundQueue: p.OutboundQueue,
	}
}
