package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type inputKind int

const (
	inputAudio inputKind = iota + 1
	inputEmbedding
	inputEnrolled
)

// Input is one side of a verification: an audio file, an embedding, or an
// enrolled speaker.
type Input struct {
	kind      inputKind
	path      string
	embedding Embedding
	speakerID string
}

// AudioInput refers to an audio file to be loaded and embedded.
func AudioInput(path string) Input {
	return Input{kind: inputAudio, path: path}
}

// EmbeddingInput uses e as is.
func EmbeddingInput(e Embedding) Input {
	return Input{kind: inputEmbedding, embedding: e}
}

// EnrolledInput refers to the stored embedding of an enrolled speaker.
func EnrolledInput(speakerID string) Input {
	return Input{kind: inputEnrolled, speakerID: speakerID}
}

func (in Input) String() string {
	switch in.kind {
	case inputAudio:
		return "audio:" + in.path
	case inputEmbedding:
		return fmt.Sprintf("embedding[%d]", len(in.embedding))
	case inputEnrolled:
		return "speaker:" + in.speakerID
	default:
		return "invalid"
	}
}

// Verifier decides whether two inputs come from the same speaker.
//
// Verification is read-only and safe for concurrent use.
type Verifier struct {
	pipeline
	records   RecordReader
	threshold float64
	logger    *slog.Logger
}

// NewVerifier returns a Verifier. records may be nil when EnrolledInput is
// never used.
func NewVerifier(loader Loader, extractor Extractor, records RecordReader, opts ...Option) *Verifier {
	o := newOptions(opts)
	return &Verifier{
		pipeline: pipeline{
			loader:    loader,
			extractor: extractor,
			timeout:   o.timeout,
			metrics:   o.metrics,
		},
		records:   records,
		threshold: o.threshold,
		logger:    o.logger,
	}
}

// Threshold returns the decision threshold.
func (v *Verifier) Threshold() float64 { return v.threshold }

// Verify scores a against b.
//
// Side a is fully resolved before side b is touched, so a failure on a
// performs no work for b. Errors match ErrLoad, ErrExtraction,
// ErrNotFound, ErrEmbeddingMismatch or ErrDegenerateEmbedding; a failure is
// never reported as a score.
func (v *Verifier) Verify(ctx context.Context, a, b Input) (*Result, error) {
	start := time.Now()
	res, err := v.verify(ctx, a, b)
	v.metrics.verified(res, err, time.Since(start))
	if err != nil {
		v.logger.Debug("voiceprint: verify failed", "a", a, "b", b, "err", err)
		return nil, err
	}
	v.logger.Debug("voiceprint: verified", "a", a, "b", b, "score", res.Score, "same", res.SameSpeaker)
	return res, nil
}

func (v *Verifier) verify(ctx context.Context, a, b Input) (*Result, error) {
	ea, err := v.resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	eb, err := v.resolve(ctx, b)
	if err != nil {
		return nil, err
	}
	score, err := Cosine(ea, eb)
	if err != nil {
		return nil, err
	}
	res := Decide(score, v.threshold)
	return &res, nil
}

// VerifyFiles compares two audio files.
func (v *Verifier) VerifyFiles(ctx context.Context, pathA, pathB string) (*Result, error) {
	return v.Verify(ctx, AudioInput(pathA), AudioInput(pathB))
}

// VerifyEnrolled compares an audio file with an enrolled speaker.
func (v *Verifier) VerifyEnrolled(ctx context.Context, path, speakerID string) (*Result, error) {
	return v.Verify(ctx, AudioInput(path), EnrolledInput(speakerID))
}

// resolve turns an input into a validated embedding.
func (v *Verifier) resolve(ctx context.Context, in Input) (Embedding, error) {
	switch in.kind {
	case inputAudio:
		return v.embed(ctx, in.path)
	case inputEmbedding:
		if err := in.embedding.Validate(); err != nil {
			return nil, err
		}
		return in.embedding, nil
	case inputEnrolled:
		return resolveEnrolled(ctx, v.records, v.extractor, in.speakerID)
	default:
		return nil, errors.New("voiceprint: zero Input")
	}
}

// resolveEnrolled fetches a stored embedding and checks it was produced by
// the same extractor version as ext.
func resolveEnrolled(ctx context.Context, records RecordReader, ext Extractor, id string) (Embedding, error) {
	if records == nil {
		return nil, fmt.Errorf("voiceprint: no record store configured for speaker %q", id)
	}
	rec, err := records.Record(ctx, id)
	if err != nil {
		return nil, err
	}
	want, err := extractorVersion(ctx, ext)
	if err != nil {
		return nil, err
	}
	if stored := rec.Metadata.ExtractorVersion; stored != "" && want != "" && stored != want {
		return nil, versionMismatch(stored, want)
	}
	if err := rec.Embedding.Validate(); err != nil {
		return nil, fmt.Errorf("speaker %q: %w", id, err)
	}
	return rec.Embedding, nil
}
