package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haivivi/speakerid/pkg/audio/pcm"
	"golang.org/x/sync/semaphore"
)

// Extractor computes a speaker embedding from a waveform.
//
// Implementations wrap an acoustic model (ECAPA-TDNN, ResNet, ...) and
// accept mono audio at any sample rate, resampling internally as needed.
// Every embedding produced by one Version has length Dimension.
//
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Extract computes an embedding. Failures should match ErrExtraction.
	Extract(ctx context.Context, w *pcm.Waveform) (Embedding, error)

	// Dimension returns the embedding length (e.g. 192).
	Dimension() int

	// Version identifies the model. Embeddings from different versions
	// are not comparable.
	Version() string

	// Close releases model resources.
	Close() error
}

// ExtractorFactory builds the model behind a SharedExtractor.
type ExtractorFactory func(ctx context.Context) (Extractor, error)

// ErrExtractorClosed is returned by SharedExtractor after Close.
var ErrExtractorClosed = errors.New("voiceprint: extractor closed")

// SharedExtractor is the process-wide model handle. The underlying model is
// built by the factory on first use and reused for every call until Close.
// At most Concurrency inferences run at once.
type SharedExtractor struct {
	version string
	factory ExtractorFactory
	sem     *semaphore.Weighted
	logger  *slog.Logger

	mu     sync.Mutex
	ext    Extractor
	closed bool
}

// SharedOption configures a SharedExtractor.
type SharedOption func(*SharedExtractor)

// WithConcurrency bounds concurrent inferences (default 1).
func WithConcurrency(n int) SharedOption {
	return func(s *SharedExtractor) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithExtractorLogger sets the logger used for model lifecycle events.
func WithExtractorLogger(l *slog.Logger) SharedOption {
	return func(s *SharedExtractor) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSharedExtractor returns a lazily initialized extractor. version is the
// configured extractor version; a model reporting a different version fails
// to initialize.
func NewSharedExtractor(version string, factory ExtractorFactory, opts ...SharedOption) *SharedExtractor {
	s := &SharedExtractor{
		version: version,
		factory: factory,
		sem:     semaphore.NewWeighted(1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// get returns the model, building it if needed. A failed build is retried
// on the next call.
func (s *SharedExtractor) get(ctx context.Context) (Extractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrExtractorClosed
	}
	if s.ext != nil {
		return s.ext, nil
	}
	ext, err := s.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: init model: %w", ErrExtraction, err)
	}
	if s.version != "" && ext.Version() != s.version {
		ext.Close()
		return nil, versionMismatch(s.version, ext.Version())
	}
	s.logger.Debug("voiceprint: extractor ready", "version", ext.Version(), "dim", ext.Dimension())
	s.ext = ext
	return ext, nil
}

// Init builds the model now instead of on first Extract.
func (s *SharedExtractor) Init(ctx context.Context) error {
	_, err := s.get(ctx)
	return err
}

// Extract implements Extractor. The returned embedding has been validated.
func (s *SharedExtractor) Extract(ctx context.Context, w *pcm.Waveform) (Embedding, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	defer s.sem.Release(1)

	ext, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := ext.Extract(ctx, w)
	if err != nil {
		return nil, extractionError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if err := emb.Validate(); err != nil {
		return nil, err
	}
	if d := ext.Dimension(); d > 0 && len(emb) != d {
		return nil, fmt.Errorf("%w: model returned %d values, declared %d", ErrExtraction, len(emb), d)
	}
	return emb, nil
}

// Dimension returns the model's embedding length, or 0 before the model has
// been built.
func (s *SharedExtractor) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ext == nil {
		return 0
	}
	return s.ext.Dimension()
}

// Version returns the configured version, or the model's version when none
// was configured and the model has been built.
func (s *SharedExtractor) Version() string {
	if s.version != "" {
		return s.version
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ext == nil {
		return ""
	}
	return s.ext.Version()
}

// Close tears down the model. Later calls to Extract fail with
// ErrExtractorClosed.
func (s *SharedExtractor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ext == nil {
		return nil
	}
	err := s.ext.Close()
	s.ext = nil
	return err
}

// extractorVersion returns ext.Version. A lazily built extractor that does
// not know its version yet is initialized first.
func extractorVersion(ctx context.Context, ext Extractor) (string, error) {
	if v := ext.Version(); v != "" {
		return v, nil
	}
	if lazy, ok := ext.(interface{ Init(context.Context) error }); ok {
		if err := lazy.Init(ctx); err != nil {
			return "", err
		}
	}
	return ext.Version(), nil
}

var _ Extractor = (*SharedExtractor)(nil)
