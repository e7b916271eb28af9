package voiceprint

import (
	"context"
	"errors"
	"time"

	"github.com/haivivi/speakerid/pkg/audio/pcm"
)

// pipeline runs the load → extract steps shared by verification,
// enrollment and identification.
type pipeline struct {
	loader    Loader
	extractor Extractor
	timeout   time.Duration
	metrics   *Metrics
}

func (p *pipeline) step(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// load decodes path. Every failure is a *LoadError.
func (p *pipeline) load(ctx context.Context, path string) (w *pcm.Waveform, err error) {
	ctx, cancel := p.step(ctx)
	defer cancel()
	w, err = p.loader.Load(ctx, path)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			err = &LoadError{Path: path, Err: err}
		}
		return nil, err
	}
	return w, nil
}

// extract runs the model on w and validates the result.
func (p *pipeline) extract(ctx context.Context, w *pcm.Waveform) (Embedding, error) {
	ctx, cancel := p.step(ctx)
	defer cancel()
	start := time.Now()
	emb, err := p.extractor.Extract(ctx, w)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, extractionError(err)
	}
	p.metrics.extracted(time.Since(start))
	if err := emb.Validate(); err != nil {
		return nil, err
	}
	return emb, nil
}

// embed loads path and extracts its embedding.
func (p *pipeline) embed(ctx context.Context, path string) (Embedding, error) {
	w, err := p.load(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.extract(ctx, w)
}
