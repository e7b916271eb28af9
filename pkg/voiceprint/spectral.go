package voiceprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/haivivi/speakerid/pkg/audio/fbank"
	"github.com/haivivi/speakerid/pkg/audio/pcm"
	"github.com/haivivi/speakerid/pkg/audio/resampler"
)

// SpectralExtractor is a model-free Extractor built on log mel filterbank
// statistics. The embedding is the per-band mean and standard deviation of
// the log mel energies, each centered across bands, giving 2×NumMels values.
//
// It is deterministic and needs no weights, which makes it suitable for
// tests and demos. Its speaker discrimination is far below a trained
// network; do not use its scores with DefaultThreshold in production.
//
// Silent input yields an all-zero vector, which Validate rejects as
// degenerate.
type SpectralExtractor struct {
	fb *fbank.Extractor
}

// NewSpectralExtractor creates a SpectralExtractor with the given front-end
// configuration. Use fbank.DefaultConfig for 16kHz / 80 mel bands.
func NewSpectralExtractor(cfg fbank.Config) (*SpectralExtractor, error) {
	fb, err := fbank.New(cfg)
	if err != nil {
		return nil, err
	}
	return &SpectralExtractor{fb: fb}, nil
}

// Extract implements Extractor.
func (e *SpectralExtractor) Extract(ctx context.Context, w *pcm.Waveform) (Embedding, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	w, err := resampler.Resample(w, e.fb.Config().SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	feats, err := e.fb.ExtractContext(ctx, w.Samples)
	if err != nil {
		if errors.Is(err, fbank.ErrTooShort) {
			return nil, fmt.Errorf("%w: %v of audio is shorter than one analysis window", ErrExtraction, w.Duration())
		}
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	mean, std := fbank.Pool(feats)
	emb := make(Embedding, 0, len(mean)+len(std))
	emb = appendCentered(emb, mean)
	emb = appendCentered(emb, std)
	return emb, nil
}

// appendCentered appends v minus its average. Removing the average makes
// the embedding invariant to overall gain.
func appendCentered(dst Embedding, v []float32) Embedding {
	var sum float64
	for _, x := range v {
		sum += float64(x)
	}
	avg := sum / float64(len(v))
	for _, x := range v {
		dst = append(dst, float32(float64(x)-avg))
	}
	return dst
}

// Dimension implements Extractor.
func (e *SpectralExtractor) Dimension() int {
	return 2 * e.fb.Config().NumMels
}

// Version implements Extractor.
func (e *SpectralExtractor) Version() string {
	cfg := e.fb.Config()
	return fmt.Sprintf("spectral-v1-mel%d-%dk", cfg.NumMels, cfg.SampleRate/1000)
}

// Close implements Extractor.
func (e *SpectralExtractor) Close() error { return nil }

var _ Extractor = (*SpectralExtractor)(nil)
