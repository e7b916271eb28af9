package voiceprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/haivivi/speakerid/pkg/kv"
	"github.com/haivivi/speakerid/pkg/storage"
	"github.com/sbinet/npyio"
	"github.com/vmihailenco/msgpack/v5"
)

// CatalogSeparator is the key separator the store expects its catalog to be
// opened with. Speaker ids may contain ':' but never control characters.
const CatalogSeparator byte = 0x1F

// catalogPrefix is the first key segment of every catalog entry.
const catalogPrefix = "speaker"

// RecordReader fetches enrolled records. *Store implements it.
type RecordReader interface {
	Record(ctx context.Context, id string) (*Record, error)
}

// Store persists enrolled embeddings.
//
// Each record is a NumPy .npy file "<id>.npy" holding the float32 vector,
// written through a storage.FileStore, plus a msgpack-encoded Metadata entry
// in a kv.Store catalog. Vector files written by other tools are readable
// even without a catalog entry.
//
// Writes to the same id are serialized; different ids proceed in parallel.
type Store struct {
	files   storage.FileStore
	catalog kv.Store
	logger  *slog.Logger
	metrics *Metrics
	locks   keyedMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreMetrics records store operations in m.
func WithStoreMetrics(m *Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore returns a Store writing vectors to files and metadata to catalog.
// The catalog should be opened with kv.Options{Separator: CatalogSeparator}.
func NewStore(files storage.FileStore, catalog kv.Store, opts ...StoreOption) *Store {
	s := &Store{files: files, catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the storage path of the vector file for id.
func (s *Store) Path(id string) string {
	return id + ".npy"
}

func catalogKey(id string) kv.Key {
	return kv.Key{catalogPrefix, id}
}

// Put writes rec, replacing any existing record with the same id.
//
// The vector file is written first, then the catalog entry. If the catalog
// write fails the previous vector file is restored (or the new one removed),
// so a failed Put leaves the store as it was.
func (s *Store) Put(ctx context.Context, rec *Record) error {
	return s.put(ctx, rec, true)
}

// Create is like Put but fails with ErrAlreadyEnrolled when a vector file
// for the id already exists. The check and the write happen under the same
// per-id lock.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	return s.put(ctx, rec, false)
}

func (s *Store) put(ctx context.Context, rec *Record, replace bool) error {
	if err := ValidateSpeakerID(rec.SpeakerID); err != nil {
		return err
	}
	if err := rec.Embedding.Validate(); err != nil {
		return err
	}
	unlock := s.locks.Lock(rec.SpeakerID)
	defer unlock()

	path := s.Path(rec.SpeakerID)
	prev, err := storage.ReadFile(ctx, s.files, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		prev = nil
	case err != nil:
		return fmt.Errorf("voiceprint: read previous %s: %w", path, err)
	case !replace:
		return fmt.Errorf("%w: %q", ErrAlreadyEnrolled, rec.SpeakerID)
	}

	var buf bytes.Buffer
	if err := npyio.Write(&buf, []float32(rec.Embedding)); err != nil {
		return fmt.Errorf("voiceprint: encode %s: %w", path, err)
	}

	meta := rec.Metadata
	meta.SpeakerID = rec.SpeakerID
	meta.Dimension = len(rec.Embedding)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	value, err := msgpack.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("voiceprint: encode metadata: %w", err)
	}

	if err := storage.WriteFile(ctx, s.files, path, buf.Bytes()); err != nil {
		s.metrics.storeOp("put", err)
		return fmt.Errorf("voiceprint: write %s: %w", path, err)
	}
	if err := s.catalog.Set(ctx, catalogKey(rec.SpeakerID), value); err != nil {
		err = fmt.Errorf("voiceprint: write catalog for %q: %w", rec.SpeakerID, err)
		if rerr := s.rollback(ctx, path, prev); rerr != nil {
			s.logger.Error("voiceprint: rollback failed", "speaker", rec.SpeakerID, "err", rerr)
			err = errors.Join(err, rerr)
		}
		s.metrics.storeOp("put", err)
		return err
	}
	s.metrics.storeOp("put", nil)
	s.logger.Debug("voiceprint: stored record", "speaker", rec.SpeakerID, "path", path, "dim", meta.Dimension)
	return nil
}

// rollback restores prev at path, or removes path when prev is nil. It runs
// even if ctx has been canceled.
func (s *Store) rollback(ctx context.Context, path string, prev []byte) error {
	ctx = context.WithoutCancel(ctx)
	if prev == nil {
		return s.files.Delete(ctx, path)
	}
	return storage.WriteFile(ctx, s.files, path, prev)
}

// Get returns the embedding stored for id. Unknown ids return an error
// matching ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Embedding, error) {
	if err := ValidateSpeakerID(id); err != nil {
		return nil, err
	}
	path := s.Path(id)
	data, err := storage.ReadFile(ctx, s.files, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		s.metrics.storeOp("get", err)
		return nil, fmt.Errorf("voiceprint: read %s: %w", path, err)
	}
	var vec []float32
	if err := npyio.Read(bytes.NewReader(data), &vec); err != nil {
		s.metrics.storeOp("get", err)
		return nil, fmt.Errorf("%w: decode %s: %w", ErrCorruptRecord, path, err)
	}
	s.metrics.storeOp("get", nil)
	return Embedding(vec), nil
}

// Record returns the embedding and metadata for id. A vector file without
// a catalog entry yields metadata with only SpeakerID and Dimension set.
func (s *Store) Record(ctx context.Context, id string) (*Record, error) {
	emb, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta, err := s.metadata(ctx, id)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		meta = &Metadata{SpeakerID: id}
	case err != nil:
		return nil, err
	}
	meta.Dimension = len(emb)
	return &Record{SpeakerID: id, Embedding: emb, Metadata: *meta}, nil
}

func (s *Store) metadata(ctx context.Context, id string) (*Metadata, error) {
	value, err := s.catalog.Get(ctx, catalogKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("voiceprint: read catalog for %q: %w", id, err)
	}
	var meta Metadata
	if err := msgpack.Unmarshal(value, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode metadata for %q: %w", ErrCorruptRecord, id, err)
	}
	return &meta, nil
}

// Exists reports whether a vector file exists for id.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := ValidateSpeakerID(id); err != nil {
		return false, err
	}
	return s.files.Exists(ctx, s.Path(id))
}

// Delete removes the record for id. It returns an error matching
// ErrNotFound if neither a vector file nor a catalog entry exists.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ValidateSpeakerID(id); err != nil {
		return err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	path := s.Path(id)
	hasFile, err := s.files.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("voiceprint: stat %s: %w", path, err)
	}
	_, err = s.catalog.Get(ctx, catalogKey(id))
	hasMeta := err == nil
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("voiceprint: read catalog for %q: %w", id, err)
	}
	if !hasFile && !hasMeta {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	// The vector file goes first: once it is gone Get reports ErrNotFound
	// even if the catalog delete below fails.
	if err := s.files.Delete(ctx, path); err != nil {
		s.metrics.storeOp("delete", err)
		return fmt.Errorf("voiceprint: delete %s: %w", path, err)
	}
	if err := s.catalog.Delete(ctx, catalogKey(id)); err != nil {
		s.metrics.storeOp("delete", err)
		return fmt.Errorf("voiceprint: delete catalog for %q: %w", id, err)
	}
	s.metrics.storeOp("delete", nil)
	s.logger.Debug("voiceprint: deleted record", "speaker", id)
	return nil
}

// List returns the metadata of every cataloged record, ordered by id.
// Vector files without a catalog entry are not listed.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	var out []Metadata
	for e, err := range s.catalog.List(ctx, kv.Key{catalogPrefix}) {
		if err != nil {
			return nil, fmt.Errorf("voiceprint: list catalog: %w", err)
		}
		var meta Metadata
		if err := msgpack.Unmarshal(e.Value, &meta); err != nil {
			return nil, fmt.Errorf("voiceprint: decode metadata for %s: %w", e.Key, err)
		}
		out = append(out, meta)
	}
	return out, nil
}

var _ RecordReader = (*Store)(nil)
