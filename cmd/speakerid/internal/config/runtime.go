package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/haivivi/speakerid/pkg/audio/fbank"
	"github.com/haivivi/speakerid/pkg/kv"
	"github.com/haivivi/speakerid/pkg/storage"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

// Runtime holds the opened components of a run. Close releases them.
type Runtime struct {
	Settings *Settings

	Files     storage.FileStore
	Catalog   kv.Store
	Extractor *voiceprint.SharedExtractor
	Store     *voiceprint.Store

	Verifier   *voiceprint.Verifier
	Enroller   *voiceprint.Enroller
	Identifier *voiceprint.Identifier

	Metrics  *voiceprint.Metrics
	Registry *prometheus.Registry
}

// Open opens storage and catalog and wires the voiceprint services. The
// extractor is built lazily on first use.
func Open(ctx context.Context, s *Settings, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	files, err := openFiles(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	catalog, err := openCatalog(s, logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	metrics := voiceprint.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		catalog.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	fcfg := fbank.DefaultConfig()
	fcfg.NumMels = s.NumMels
	if err := fcfg.Validate(); err != nil {
		catalog.Close()
		return nil, err
	}
	extractor := voiceprint.NewSharedExtractor(s.ExtractorVersion,
		func(context.Context) (voiceprint.Extractor, error) {
			e, err := voiceprint.NewSpectralExtractor(fcfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		voiceprint.WithConcurrency(s.Concurrency),
		voiceprint.WithExtractorLogger(logger),
	)

	hasher, err := voiceprint.NewHasher(2*fcfg.NumMels, voiceprint.DefaultHashBits, s.HashSeed)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	store := voiceprint.NewStore(files, catalog,
		voiceprint.WithStoreLogger(logger),
		voiceprint.WithStoreMetrics(metrics),
	)
	loader := voiceprint.NewFileLoader(s.RawFormat)
	opts := []voiceprint.Option{
		voiceprint.WithThreshold(s.Threshold),
		voiceprint.WithTimeout(s.Timeout),
		voiceprint.WithLogger(logger),
		voiceprint.WithMetrics(metrics),
		voiceprint.WithOverwrite(s.Overwrite),
		voiceprint.WithHasher(hasher),
	}

	return &Runtime{
		Settings:   s,
		Files:      files,
		Catalog:    catalog,
		Extractor:  extractor,
		Store:      store,
		Verifier:   voiceprint.NewVerifier(loader, extractor, store, opts...),
		Enroller:   voiceprint.NewEnroller(loader, extractor, store, opts...),
		Identifier: voiceprint.NewIdentifier(loader, extractor, store, opts...),
		Metrics:    metrics,
		Registry:   reg,
	}, nil
}

func openFiles(ctx context.Context, s *Settings) (storage.FileStore, error) {
	st := s.Storage
	switch st.Backend {
	case BackendS3:
		return storage.NewS3FromOptions(ctx, storage.S3Options{
			Bucket:    st.Bucket,
			Prefix:    st.Prefix,
			Region:    st.Region,
			Endpoint:  st.Endpoint,
			AccessKey: st.AccessKey,
			SecretKey: st.SecretKey,
			PathStyle: st.PathStyle,
		})
	case BackendMinIO:
		return storage.NewMinIO(storage.MinIOOptions{
			Endpoint:  st.Endpoint,
			AccessKey: st.AccessKey,
			SecretKey: st.SecretKey,
			UseSSL:    st.UseSSL,
			Bucket:    st.Bucket,
			Prefix:    st.Prefix,
		})
	default:
		return storage.NewLocal(s.EmbeddingsDir)
	}
}

func openCatalog(s *Settings, logger *slog.Logger) (kv.Store, error) {
	opts := &kv.Options{Separator: voiceprint.CatalogSeparator}
	if s.Catalog.Backend == CatalogMemory {
		return kv.NewMemory(opts), nil
	}
	return kv.NewBadger(kv.BadgerOptions{
		Options: opts,
		Dir:     s.Catalog.Dir,
		Logger:  logger,
	})
}

// Close releases the extractor and the catalog.
func (r *Runtime) Close() error {
	return errors.Join(r.Extractor.Close(), r.Catalog.Close())
}
