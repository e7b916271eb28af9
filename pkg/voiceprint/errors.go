package voiceprint

import (
	"errors"
	"fmt"
)

// Sentinel errors. Struct error types in this package match them via Is.
var (
	// ErrLoad means an audio file is missing, unreadable or undecodable.
	ErrLoad = errors.New("voiceprint: audio load failed")

	// ErrExtraction means the embedding model failed on valid audio.
	ErrExtraction = errors.New("voiceprint: embedding extraction failed")

	// ErrEmbeddingMismatch means two embeddings differ in dimension or
	// extractor version and cannot be compared.
	ErrEmbeddingMismatch = errors.New("voiceprint: embedding mismatch")

	// ErrDegenerateEmbedding means an embedding is empty, non-finite or
	// has zero magnitude.
	ErrDegenerateEmbedding = errors.New("voiceprint: degenerate embedding")

	// ErrNotFound means no record exists for a speaker id.
	ErrNotFound = errors.New("voiceprint: speaker not found")

	// ErrEnrollment wraps any failure during enrollment.
	ErrEnrollment = errors.New("voiceprint: enrollment failed")

	// ErrInvalidSpeakerID means an id cannot name a record.
	ErrInvalidSpeakerID = errors.New("voiceprint: invalid speaker id")

	// ErrAlreadyEnrolled is returned under OverwriteReject when the id is
	// already taken.
	ErrAlreadyEnrolled = errors.New("voiceprint: speaker already enrolled")

	// ErrCorruptRecord means a stored vector file or catalog entry exists
	// but cannot be decoded.
	ErrCorruptRecord = errors.New("voiceprint: corrupt record")
)

// LoadError reports a failure to turn an audio file into a waveform.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("voiceprint: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// MismatchError reports two embeddings that cannot be compared.
type MismatchError struct {
	// Field is "dimension" or "extractor version".
	Field string
	A, B  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("voiceprint: embedding %s mismatch: %s vs %s", e.Field, e.A, e.B)
}

func (e *MismatchError) Is(target error) bool { return target == ErrEmbeddingMismatch }

func dimensionMismatch(a, b int) *MismatchError {
	return &MismatchError{Field: "dimension", A: fmt.Sprint(a), B: fmt.Sprint(b)}
}

func versionMismatch(a, b string) *MismatchError {
	return &MismatchError{Field: "extractor version", A: a, B: b}
}

// Enrollment stages reported in EnrollmentError.
const (
	StageValidate = "validate"
	StageLoad     = "load"
	StageExtract  = "extract"
	StageStore    = "store"
)

// EnrollmentError reports which stage of an enrollment failed. It matches
// ErrEnrollment and unwraps to the cause.
type EnrollmentError struct {
	SpeakerID string
	Stage     string
	Err       error
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("voiceprint: enroll %q: %s: %v", e.SpeakerID, e.Stage, e.Err)
}

func (e *EnrollmentError) Unwrap() error { return e.Err }

func (e *EnrollmentError) Is(target error) bool { return target == ErrEnrollment }

// extractionError marks err as an extraction failure unless it already is.
func extractionError(err error) error {
	if errors.Is(err, ErrExtraction) || errors.Is(err, ErrDegenerateEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrExtraction, err)
}
