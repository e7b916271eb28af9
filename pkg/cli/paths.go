package cli

import (
	"os"
	"path/filepath"
)

// Paths locates the per-user directories of an app.
type Paths struct {
	// AppName is the application name
	AppName string

	// BaseDir is os.UserConfigDir()
	BaseDir string
}

// NewPaths creates a new Paths instance for the given app
func NewPaths(appName string) (*Paths, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &Paths{AppName: appName, BaseDir: base}, nil
}

// AppDir returns the app directory (<config dir>/<app>)
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir, p.AppName)
}

// ConfigFile returns the config file path (<app dir>/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// DataDir returns the data directory (<app dir>/data)
func (p *Paths) DataDir() string {
	return filepath.Join(p.AppDir(), "data")
}

// DataPath returns a path within the data directory
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir(), name)
}

// EnsureDataDir creates the data directory if it doesn't exist
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0o755)
}
