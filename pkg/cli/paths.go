package cli

import (
	"os"
	"path/filepath"
)

// HomeEnv relocates the base directory, normally ~/.languify.
const HomeEnv = "LANGUIFY_HOME"

// Paths locates the per-app files under the base directory.
type Paths struct {
	// Root is the base directory shared by all apps.
	Root    string
	AppName string
}

// NewPaths returns the paths for appName, rooted at $LANGUIFY_HOME or
// ~/.languify.
func NewPaths(appName string) (*Paths, error) {
	root := os.Getenv(HomeEnv)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(home, DefaultBaseDir)
	}
	return &Paths{Root: root, AppName: appName}, nil
}

// AppDir returns <root>/<app>.
func (p *Paths) AppDir() string {
	return filepath.Join(p.Root, p.AppName)
}

// ConfigFile returns <root>/<app>/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// LogPath returns the path of a log file, creating the log directory.
func (p *Paths) LogPath(name string) (string, error) {
	dir := filepath.Join(p.AppDir(), "logs")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
