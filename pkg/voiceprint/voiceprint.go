// Package voiceprint implements speaker verification and enrollment on top
// of fixed-length voice embeddings.
//
// # Pipeline
//
// Audio flows through four stages:
//
//  1. FileLoader.Load: audio file → mono [pcm.Waveform]
//  2. Extractor.Extract: waveform → [Embedding] (dimension fixed per model)
//  3. Verifier / Identifier: embedding(s) → cosine score and verdict
//  4. Enroller → Store: embedding persisted as <speaker>.npy plus a catalog
//     entry holding its [Metadata]
//
// The acoustic model is behind the [Extractor] interface. [SpectralExtractor]
// is a dependency-free reference implementation built on log mel filterbank
// statistics; production deployments plug in a neural model.
//
// # Errors
//
// Every failure is reported through the sentinel errors in this package so
// callers can branch with [errors.Is]: [ErrLoad], [ErrExtraction],
// [ErrEmbeddingMismatch], [ErrDegenerateEmbedding], [ErrNotFound] and
// [ErrEnrollment]. A failure is never turned into a score.
//
// # Voice Labels
//
// Records carry a short locality-sensitive hash of their embedding produced
// by [Hasher] ("voice:A3F8"). Labels are for display and coarse grouping;
// decisions always use the full cosine score.
package voiceprint

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// DefaultThreshold is the decision threshold calibrated for the reference
// ECAPA-style models. Scores at or above it are judged the same speaker.
const DefaultThreshold = 0.25

// Embedding is a speaker's voice signature. Its length is fixed by the
// extractor version that produced it.
type Embedding []float32

// Validate checks that e is usable for comparison: non-empty, all values
// finite, and non-zero magnitude. Failures match [ErrDegenerateEmbedding].
func (e Embedding) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("%w: empty", ErrDegenerateEmbedding)
	}
	var sq float64
	for i, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrDegenerateEmbedding, i)
		}
		sq += f * f
	}
	if sq == 0 {
		return fmt.Errorf("%w: zero magnitude", ErrDegenerateEmbedding)
	}
	return nil
}

// Dimension returns the embedding length.
func (e Embedding) Dimension() int { return len(e) }

// Equal reports whether a and b are bit-identical.
func (e Embedding) Equal(other Embedding) bool {
	if len(e) != len(other) {
		return false
	}
	for i := range e {
		if math.Float32bits(e[i]) != math.Float32bits(other[i]) {
			return false
		}
	}
	return true
}

// Result is the outcome of one verification call. It is not persisted.
type Result struct {
	Score       float64 `json:"score" yaml:"score"`
	SameSpeaker bool    `json:"same_speaker" yaml:"same_speaker"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
}

// Decide applies threshold to score. The boundary is inclusive.
func Decide(score, threshold float64) Result {
	return Result{Score: score, SameSpeaker: score >= threshold, Threshold: threshold}
}

// Metadata describes a stored embedding. It lives in the store catalog next
// to the vector file.
type Metadata struct {
	SpeakerID        string    `msgpack:"speaker_id" json:"speaker_id" yaml:"speaker_id"`
	RecordID         string    `msgpack:"record_id" json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Source           string    `msgpack:"source" json:"source,omitempty" yaml:"source,omitempty"`
	ExtractorVersion string    `msgpack:"extractor_version" json:"extractor_version,omitempty" yaml:"extractor_version,omitempty"`
	Dimension        int       `msgpack:"dimension" json:"dimension" yaml:"dimension"`
	Hash             string    `msgpack:"hash" json:"hash,omitempty" yaml:"hash,omitempty"`
	CreatedAt        time.Time `msgpack:"created_at" json:"created_at,omitzero" yaml:"created_at,omitempty"`
}

// Label returns the voice label of the record, or "" if it has no hash.
func (m Metadata) Label() string {
	if m.Hash == "" {
		return ""
	}
	return VoiceLabel(m.Hash)
}

// Record is an enrolled speaker: the embedding and its metadata.
type Record struct {
	SpeakerID string
	Embedding Embedding
	Metadata  Metadata
}

// VoiceLabel returns a prefixed voice label string for display.
// Format: "voice:{hash}".
func VoiceLabel(hash string) string {
	return "voice:" + hash
}

// ValidateSpeakerID checks that id can name a record file: non-empty, no
// leading dot, no path separators and no control characters.
func ValidateSpeakerID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidSpeakerID)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidSpeakerID, id)
	case strings.ContainsAny(id, "/\\"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSpeakerID, id)
	case strings.ContainsFunc(id, unicode.IsControl):
		return fmt.Errorf("%w: %q contains a control character", ErrInvalidSpeakerID, id)
	}
	return nil
}
