// Package config turns a CLI context plus command line overrides into the
// effective settings of a speakerid run, and opens the runtime (storage,
// catalog, extractor and services) those settings describe.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/haivivi/speakerid/pkg/audio/pcm"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

// AppName is the configuration directory name under os.UserConfigDir().
const AppName = "speakerid"

// Defaults for settings left unset by both the context and the flags.
const (
	DefaultEmbeddingsDir = "embeddings"
	DefaultTimeout       = 30 * time.Second
	DefaultAddr          = ":8080"
	DefaultRawRate       = 16000
	DefaultNumMels       = 80
	DefaultHashSeed      = 0x5eed
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinIO = "minio"
)

// Catalog backends.
const (
	CatalogBadger = "badger"
	CatalogMemory = "memory"
)

// Overrides are values given on the command line. Zero values leave the
// context setting in place.
type Overrides struct {
	EmbeddingsDir    string
	ExtractorVersion string
	Threshold        *float64
	Overwrite        string
	Timeout          time.Duration
	Addr             string
}

// Settings are the effective, validated settings of one run.
type Settings struct {
	Context          string
	EmbeddingsDir    string
	ExtractorVersion string
	Threshold        float64
	Overwrite        voiceprint.OverwritePolicy
	Timeout          time.Duration
	HashSeed         uint64
	RawFormat        pcm.Format
	Concurrency      int
	NumMels          int
	Addr             string
	Storage          cli.StorageConfig
	Catalog          cli.CatalogConfig
}

// Resolve merges ctx (which may be nil) with o and fills in defaults.
// dataDir is used for the catalog when embeddings are not stored locally.
func Resolve(ctx *cli.Context, o Overrides, dataDir string) (*Settings, error) {
	if ctx == nil {
		ctx = &cli.Context{}
	}
	s := &Settings{
		Context:          ctx.Name,
		EmbeddingsDir:    pick(o.EmbeddingsDir, ctx.EmbeddingsDir, DefaultEmbeddingsDir),
		ExtractorVersion: pick(o.ExtractorVersion, ctx.ExtractorVersion, ""),
		Threshold:        voiceprint.DefaultThreshold,
		Timeout:          DefaultTimeout,
		HashSeed:         ctx.HashSeed,
		RawFormat:        pcm.L16Mono16K,
		Concurrency:      1,
		NumMels:          DefaultNumMels,
		Addr:             DefaultAddr,
	}
	if s.HashSeed == 0 {
		s.HashSeed = DefaultHashSeed
	}

	switch {
	case o.Threshold != nil:
		s.Threshold = *o.Threshold
	case ctx.Threshold != nil:
		s.Threshold = *ctx.Threshold
	}

	policy, ok := voiceprint.ParseOverwritePolicy(pick(o.Overwrite, ctx.Overwrite, ""))
	if !ok {
		return nil, fmt.Errorf("invalid overwrite policy %q (want replace or reject)", pick(o.Overwrite, ctx.Overwrite, ""))
	}
	s.Overwrite = policy

	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	} else if ctx.Timeout != "" {
		d, err := time.ParseDuration(ctx.Timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid timeout %q", ctx.Timeout)
		}
		s.Timeout = d
	}

	if ctx.Audio != nil && ctx.Audio.RawSampleRate != 0 {
		f, ok := pcm.FormatForRate(ctx.Audio.RawSampleRate)
		if !ok {
			return nil, fmt.Errorf("unsupported raw sample rate %d", ctx.Audio.RawSampleRate)
		}
		s.RawFormat = f
	}
	if ctx.Model != nil {
		if ctx.Model.Concurrency > 0 {
			s.Concurrency = ctx.Model.Concurrency
		}
		if ctx.Model.NumMels > 0 {
			s.NumMels = ctx.Model.NumMels
		}
	}
	if ctx.Server != nil && ctx.Server.Addr != "" {
		s.Addr = ctx.Server.Addr
	}
	if o.Addr != "" {
		s.Addr = o.Addr
	}

	if ctx.Storage != nil {
		s.Storage = *ctx.Storage
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = BackendLocal
	}
	switch s.Storage.Backend {
	case BackendLocal:
	case BackendS3, BackendMinIO:
		if s.Storage.Bucket == "" {
			return nil, fmt.Errorf("storage backend %s requires a bucket", s.Storage.Backend)
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Storage.Backend)
	}

	if ctx.Catalog != nil {
		s.Catalog = *ctx.Catalog
	}
	if s.Catalog.Backend == "" {
		s.Catalog.Backend = CatalogBadger
	}
	switch s.Catalog.Backend {
	case CatalogBadger:
		if s.Catalog.Dir == "" {
			if s.Storage.Backend == BackendLocal {
				s.Catalog.Dir = filepath.Join(s.EmbeddingsDir, ".catalog")
			} else {
				s.Catalog.Dir = filepath.Join(dataDir, "catalog")
			}
		}
	case CatalogMemory:
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", s.Catalog.Backend)
	}
	return s, nil
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
