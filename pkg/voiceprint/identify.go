package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/haivivi/speakerid/pkg/vecstore"
)

// Candidate is one ranked identification result.
type Candidate struct {
	SpeakerID   string  `json:"speaker_id" yaml:"speaker_id"`
	Score       float64 `json:"score" yaml:"score"`
	SameSpeaker bool    `json:"same_speaker" yaml:"same_speaker"`
	Label       string  `json:"label,omitempty" yaml:"label,omitempty"`
}

// Identifier searches all enrolled speakers for the closest matches to a
// probe (1:N identification).
type Identifier struct {
	pipeline
	store     *Store
	threshold float64
	logger    *slog.Logger
}

// NewIdentifier returns an Identifier over store.
func NewIdentifier(loader Loader, extractor Extractor, store *Store, opts ...Option) *Identifier {
	o := newOptions(opts)
	return &Identifier{
		pipeline: pipeline{
			loader:    loader,
			extractor: extractor,
			timeout:   o.timeout,
			metrics:   o.metrics,
		},
		store:     store,
		threshold: o.threshold,
		logger:    o.logger,
	}
}

// Identify returns up to topK enrolled speakers ranked by cosine score
// against probe. Only records produced by the current extractor version
// take part. An empty catalog yields no candidates.
func (id *Identifier) Identify(ctx context.Context, probe Input, topK int) ([]Candidate, error) {
	var (
		emb Embedding
		err error
	)
	switch probe.kind {
	case inputAudio:
		emb, err = id.embed(ctx, probe.path)
	case inputEmbedding:
		emb, err = probe.embedding, probe.embedding.Validate()
	case inputEnrolled:
		emb, err = resolveEnrolled(ctx, id.store, id.extractor, probe.speakerID)
	default:
		err = errors.New("voiceprint: zero Input")
	}
	if err != nil {
		return nil, err
	}

	idx, labels, err := id.index(ctx)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	matches, err := idx.Search(emb, topK)
	if err != nil {
		if errors.Is(err, vecstore.ErrDimensionMismatch) {
			return nil, dimensionMismatch(len(emb), idx.Dimension())
		}
		return nil, fmt.Errorf("voiceprint: search: %w", err)
	}
	out := make([]Candidate, len(matches))
	for i, m := range matches {
		out[i] = Candidate{
			SpeakerID:   m.ID,
			Score:       m.Score,
			SameSpeaker: m.Score >= id.threshold,
			Label:       labels[m.ID],
		}
	}
	id.metrics.identified()
	return out, nil
}

// index loads every comparable enrolled embedding into an in-memory index.
// The index dimension is fixed by the first record loaded.
func (id *Identifier) index(ctx context.Context) (*vecstore.Memory, map[string]string, error) {
	metas, err := id.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	version, err := extractorVersion(ctx, id.extractor)
	if err != nil {
		return nil, nil, err
	}
	var (
		ids  = make([]string, 0, len(metas))
		embs = make([][]float32, 0, len(metas))
	)
	labels := make(map[string]string, len(metas))
	for _, m := range metas {
		if version != "" && m.ExtractorVersion != version {
			id.logger.Debug("voiceprint: skip speaker from other extractor",
				"speaker", m.SpeakerID, "version", m.ExtractorVersion)
			continue
		}
		emb, err := id.store.Get(ctx, m.SpeakerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		ids = append(ids, m.SpeakerID)
		embs = append(embs, emb)
		labels[m.SpeakerID] = m.Label()
	}

	idx := vecstore.NewMemory(0)
	if err := idx.BatchInsert(ids, embs); err == nil {
		return idx, labels, nil
	}
	// Some record is unusable. Rebuild one at a time and skip it.
	idx = vecstore.NewMemory(0)
	for i, sid := range ids {
		if err := idx.Insert(sid, embs[i]); err != nil {
			id.logger.Warn("voiceprint: skip unusable record", "speaker", sid, "err", err)
			delete(labels, sid)
		}
	}
	return idx, labels, nil
}
