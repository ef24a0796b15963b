package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".languify"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

var (
	// ErrNoContext is returned when no context is named and none is current.
	ErrNoContext = errors.New("no current context set")
	// ErrContextNotFound is returned for an unknown context name.
	ErrContextNotFound = errors.New("context not found")
)

// Config is the persisted set of realtime endpoint contexts of an app,
// kubectl style.
type Config struct {
	// AppName is the application name, e.g. "languify"
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one realtime endpoint and the credentials to reach it.
type Context struct {
	Name string `yaml:"name"`

	// APIKey is sent as a bearer token.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL is the realtime WebSocket endpoint, e.g.
	// wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview.
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout is the dial timeout in seconds (optional)
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries is the number of connect attempts after the first one
	// (optional)
	MaxRetries int `yaml:"max_retries,omitempty"`

	// Extra stores extra headers and other app-specific settings
	Extra map[string]string `yaml:"extra,omitempty"`
}

// LoadConfigWithPath loads the configuration of appName from path, or from
// the default location when path is empty. A missing file is created empty
// so that the location is visible to the user.
func LoadConfigWithPath(appName, path string) (*Config, error) {
	if path == "" {
		paths, err := NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
		path = paths.ConfigFile()
	}
	cfg := &Config{AppName: appName, configPath: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.Contexts = make(map[string]*Context)
		return cfg, cfg.Save()
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	// Names are the map keys; the field only mirrors them.
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			ctx = &Context{}
			cfg.Contexts[name] = ctx
		}
		ctx.Name = name
	}
	return cfg, nil
}

// Save writes the configuration atomically with owner-only permissions,
// since it holds API keys.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	dir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context and saves.
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return errors.New("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context and saves. Deleting the current context
// leaves none current.
func (c *Config) DeleteContext(name string) error {
	if _, err := c.GetContext(name); err != nil {
		return err
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext makes name current and saves.
func (c *Config) UseContext(name string) error {
	if _, err := c.GetContext(name); err != nil {
		return err
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context or an error wrapping
// ErrContextNotFound.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q: %w", name, ErrContextNotFound)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one if name is
// empty. It returns ErrNoContext when there is neither.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return nil, ErrNoContext
	}
	return c.GetContext(name)
}

// ListContexts returns all context names, sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DialTimeout returns Timeout as a duration, or def when unset.
func (ctx *Context) DialTimeout(def time.Duration) time.Duration {
	if ctx.Timeout <= 0 {
		return def
	}
	return time.Duration(ctx.Timeout) * time.Second
}

// Headers returns the extra settings prefixed "header." as HTTP headers.
func (ctx *Context) Headers() map[string]string {
	var h map[string]string
	for k, v := range ctx.Extra {
		name, ok := strings.CutPrefix(k, "header.")
		if !ok || name == "" {
			continue
		}
		if h == nil {
			h = make(map[string]string)
		}
		h[name] = v
	}
	return h
}

// GetExtra returns an extra value for the context
func (ctx *Context) GetExtra(key string) string {
	if ctx.Extra == nil {
		return ""
	}
	return ctx.Extra[key]
}

// SetExtra sets an extra value for the context
func (ctx *Context) SetExtra(key, value string) {
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]string)
	}
	ctx.Extra[key] = value
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
