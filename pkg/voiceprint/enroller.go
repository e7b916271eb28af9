package voiceprint

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enrollment is the outcome of a successful Enroll.
type Enrollment struct {
	SpeakerID string `json:"speaker_id" yaml:"speaker_id"`
	// Path is the storage path of the vector file.
	Path string `json:"path" yaml:"path"`
	// Replaced is true when an existing record was overwritten.
	Replaced bool     `json:"replaced" yaml:"replaced"`
	Record   Metadata `json:"record" yaml:"record"`
}

// Enroller registers speakers from reference audio.
type Enroller struct {
	pipeline
	store     *Store
	overwrite OverwritePolicy
	hasher    *Hasher
	logger    *slog.Logger
	now       func() time.Time
}

// NewEnroller returns an Enroller writing to store.
func NewEnroller(loader Loader, extractor Extractor, store *Store, opts ...Option) *Enroller {
	o := newOptions(opts)
	return &Enroller{
		pipeline: pipeline{
			loader:    loader,
			extractor: extractor,
			timeout:   o.timeout,
			metrics:   o.metrics,
		},
		store:     store,
		overwrite: o.overwrite,
		hasher:    o.hasher,
		logger:    o.logger,
		now:       o.now,
	}
}

// SpeakerIDFromPath derives the default speaker id: the file base name
// without its extension.
func SpeakerIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Enroll extracts an embedding from referencePath and stores it under
// speakerID. An empty speakerID defaults to SpeakerIDFromPath.
//
// Enrolling bit-identical audio again under the same id leaves the stored
// record untouched. Any failure is an *EnrollmentError and nothing is
// written.
func (e *Enroller) Enroll(ctx context.Context, referencePath, speakerID string) (*Enrollment, error) {
	if speakerID == "" {
		speakerID = SpeakerIDFromPath(referencePath)
	}
	res, err := e.enroll(ctx, referencePath, speakerID)
	e.metrics.enrolled(err)
	return res, err
}

func (e *Enroller) enroll(ctx context.Context, referencePath, speakerID string) (*Enrollment, error) {
	fail := func(stage string, err error) (*Enrollment, error) {
		e.logger.Debug("voiceprint: enroll failed", "speaker", speakerID, "stage", stage, "err", err)
		return nil, &EnrollmentError{SpeakerID: speakerID, Stage: stage, Err: err}
	}
	if err := ValidateSpeakerID(speakerID); err != nil {
		return fail(StageValidate, err)
	}

	// prev only decides idempotence and logging. The reject policy is
	// enforced again by Store.Create under the per-id lock.
	var unreadable bool
	prev, err := e.store.Record(ctx, speakerID)
	switch {
	case errors.Is(err, ErrNotFound):
		prev = nil
	case err == nil && e.overwrite == OverwriteReject:
		return fail(StageValidate, ErrAlreadyEnrolled)
	case errors.Is(err, ErrCorruptRecord) && e.overwrite == OverwriteReplace:
		e.logger.Warn("voiceprint: replacing unreadable record", "speaker", speakerID, "err", err)
		prev, unreadable = nil, true
	case err != nil:
		return fail(StageStore, err)
	}

	w, err := e.load(ctx, referencePath)
	if err != nil {
		return fail(StageLoad, err)
	}
	emb, err := e.extract(ctx, w)
	if err != nil {
		return fail(StageExtract, err)
	}

	version := e.extractor.Version()
	if prev != nil && prev.Embedding.Equal(emb) && prev.Metadata.ExtractorVersion == version {
		e.logger.Debug("voiceprint: enrollment unchanged", "speaker", speakerID)
		return &Enrollment{
			SpeakerID: speakerID,
			Path:      e.store.Path(speakerID),
			Record:    prev.Metadata,
		}, nil
	}

	meta := Metadata{
		SpeakerID:        speakerID,
		RecordID:         uuid.NewString(),
		Source:           referencePath,
		ExtractorVersion: version,
		Dimension:        len(emb),
		CreatedAt:        e.now().UTC(),
	}
	if e.hasher != nil {
		h, err := e.hasher.Hash(emb)
		if err != nil {
			return fail(StageExtract, err)
		}
		meta.Hash = h
	}
	rec := &Record{SpeakerID: speakerID, Embedding: emb, Metadata: meta}
	put := e.store.Put
	if e.overwrite == OverwriteReject {
		put = e.store.Create
	}
	if err := put(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyEnrolled) {
			return fail(StageValidate, err)
		}
		return fail(StageStore, err)
	}

	replaced := prev != nil || unreadable
	if prev != nil {
		e.logger.Warn("voiceprint: replaced enrolled speaker",
			"speaker", speakerID,
			"previous_record", prev.Metadata.RecordID,
			"record", meta.RecordID)
	} else {
		e.logger.Info("voiceprint: enrolled speaker", "speaker", speakerID, "record", meta.RecordID)
	}
	return &Enrollment{
		SpeakerID: speakerID,
		Path:      e.store.Path(speakerID),
		Replaced:  replaced,
		Record:    meta,
	}, nil
}

// Unenroll deletes the record of speakerID. Unknown ids match ErrNotFound.
func (e *Enroller) Unenroll(ctx context.Context, speakerID string) error {
	if err := e.store.Delete(ctx, speakerID); err != nil {
		return err
	}
	e.logger.Info("voiceprint: unenrolled speaker", "speaker", speakerID)
	return nil
}
