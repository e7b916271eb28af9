package cli

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultConfigFile is the configuration filename inside the app directory.
const DefaultConfigFile = "config.yaml"

// ErrNoContext is returned when no context is selected and none was named.
var ErrNoContext = errors.New("no current context set")

// Config is the on-disk configuration of a CLI app: a set of named
// contexts and the one currently in use.
type Config struct {
	// AppName is the application name (e.g., "speakerid").
	AppName string `json:"-" yaml:"-"`

	// CurrentContext is the name of the active context.
	CurrentContext string `json:"current_context,omitempty" yaml:"current_context,omitempty"`

	// Contexts maps context names to their settings.
	Contexts map[string]*Context `json:"contexts,omitempty" yaml:"contexts,omitempty"`

	configPath string
}

// Context is one deployment profile. Zero values mean "use the default".
type Context struct {
	Name string `json:"name" yaml:"name"`

	// EmbeddingsDir is the local directory for embedding files
	// (default "embeddings").
	EmbeddingsDir string `json:"embeddings_dir,omitempty" yaml:"embeddings_dir,omitempty"`

	// ExtractorVersion pins the expected model version. Records enrolled
	// with another version are refused at verification time.
	ExtractorVersion string `json:"extractor_version,omitempty" yaml:"extractor_version,omitempty"`

	// Threshold is the decision threshold; nil means the model default.
	Threshold *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// Overwrite is the enrollment overwrite policy: "replace" or "reject".
	Overwrite string `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`

	// Timeout bounds each load and extraction step, e.g. "30s".
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// HashSeed seeds the voice label hyperplanes.
	HashSeed uint64 `json:"hash_seed,omitempty" yaml:"hash_seed,omitempty"`

	Storage *StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	Catalog *CatalogConfig `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Audio   *AudioConfig   `json:"audio,omitempty" yaml:"audio,omitempty"`
	Model   *ModelConfig   `json:"model,omitempty" yaml:"model,omitempty"`
	Server  *ServerConfig  `json:"server,omitempty" yaml:"server,omitempty"`
}

// StorageConfig selects where embedding files are kept.
type StorageConfig struct {
	// Backend is "local" (default), "s3" or "minio".
	Backend   string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// CatalogConfig selects where record metadata is kept.
type CatalogConfig struct {
	// Backend is "badger" (default) or "memory".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Dir is the badger directory. Defaults to <embeddings_dir>/.catalog
	// for local storage and the app data directory otherwise.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// AudioConfig controls audio decoding.
type AudioConfig struct {
	// RawSampleRate is the rate of headerless .pcm/.raw files
	// (default 16000).
	RawSampleRate int `json:"raw_sample_rate,omitempty" yaml:"raw_sample_rate,omitempty"`
}

// ModelConfig controls the embedding extractor.
type ModelConfig struct {
	// Concurrency bounds parallel inferences (default 1).
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	// NumMels is the filterbank size of the spectral extractor (default 80).
	NumMels int `json:"num_mels,omitempty" yaml:"num_mels,omitempty"`
}

// ServerConfig controls "speakerid serve".
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// DefaultConfigPath returns os.UserConfigDir()/<app>/config.yaml.
func DefaultConfigPath(appName string) (string, error) {
	p, err := NewPaths(appName)
	if err != nil {
		return "", err
	}
	return p.ConfigFile(), nil
}

// LoadConfig reads the configuration of appName from customPath, or from
// the default location when customPath is empty. A missing file yields an
// empty configuration; nothing is written until Save.
func LoadConfig(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		p, err := DefaultConfigPath(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
		configPath = p
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, c := range cfg.Contexts {
		if c == nil {
			c = &Context{}
			cfg.Contexts[name] = c
		}
		c.Name = name
	}
	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration, creating its directory if needed. The file
// may hold storage credentials, so it is written with mode 0600.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context and saves the file. The first
// context added becomes current.
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return errors.New("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context and saves the file.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context and saves the file.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a named context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one when name
// is empty. With neither it returns ErrNoContext.
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
	return slices.Sorted(maps.Keys(c.Contexts))
}

// Redacted returns a copy of ctx with secrets masked for display.
func (ctx *Context) Redacted() *Context {
	cp := *ctx
	if ctx.Storage != nil {
		s := *ctx.Storage
		s.AccessKey = MaskAPIKey(s.AccessKey)
		s.SecretKey = MaskAPIKey(s.SecretKey)
		cp.Storage = &s
	}
	return &cp
}

// MaskAPIKey masks a credential for display.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
