package voiceprint

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/haivivi/speakerid/pkg/audio/fbank"
	"github.com/haivivi/speakerid/pkg/audio/pcm"
	"github.com/haivivi/speakerid/pkg/kv"
	"github.com/haivivi/speakerid/pkg/storage"
)

// writeWAV writes 16-bit PCM samples (interleaved when channels > 1).
func writeWAV(t *testing.T, path string, rate, channels int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if len(samples) > 0 {
		if err := enc.Write(buf); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// tone returns n samples of a sine at freq Hz with a quieter overtone.
func tone(freq float64, rate, n int) []int {
	out := make([]int, n)
	for i := range out {
		x := 2 * math.Pi * freq * float64(i) / float64(rate)
		out[i] = int(8000*math.Sin(x) + 2000*math.Sin(3*x))
	}
	return out
}

// toneWAV writes a 16 kHz mono tone of the given length in dir.
func toneWAV(t *testing.T, dir, name string, freq float64, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeWAV(t, path, 16000, 1, tone(freq, 16000, n))
	return path
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(files, kv.NewMemory(&kv.Options{Separator: CatalogSeparator}))
}

func newSpectral(t *testing.T) *SpectralExtractor {
	t.Helper()
	e, err := NewSpectralExtractor(fbank.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// tableExtractor returns a preset embedding chosen by waveform length.
type tableExtractor struct {
	version string
	dim     int
	byLen   map[int]Embedding
	calls   atomic.Int32
}

func (e *tableExtractor) Extract(_ context.Context, w *pcm.Waveform) (Embedding, error) {
	e.calls.Add(1)
	emb, ok := e.byLen[w.Len()]
	if !ok {
		return nil, ErrExtraction
	}
	return append(Embedding(nil), emb...), nil
}

func (e *tableExtractor) Dimension() int  { return e.dim }
func (e *tableExtractor) Version() string { return e.version }
func (e *tableExtractor) Close() error    { return nil }

// countingLoader wraps a Loader and counts calls.
type countingLoader struct {
	Loader
	calls atomic.Int32
}

func (l *countingLoader) Load(ctx context.Context, path string) (*pcm.Waveform, error) {
	l.calls.Add(1)
	return l.Loader.Load(ctx, path)
}

// countingExtractor wraps an Extractor and counts Extract calls.
type countingExtractor struct {
	Extractor
	calls atomic.Int32
}

func (e *countingExtractor) Extract(ctx context.Context, w *pcm.Waveform) (Embedding, error) {
	e.calls.Add(1)
	return e.Extractor.Extract(ctx, w)
}

// countingRecords wraps a RecordReader and counts lookups.
type countingRecords struct {
	RecordReader
	calls atomic.Int32
}

func (r *countingRecords) Record(ctx context.Context, id string) (*Record, error) {
	r.calls.Add(1)
	return r.RecordReader.Record(ctx, id)
}

// blockingExtractor blocks until ctx is done.
type blockingExtractor struct{ tableExtractor }

func (e *blockingExtractor) Extract(ctx context.Context, _ *pcm.Waveform) (Embedding, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingCatalog is a kv.Store whose Set always fails.
type failingCatalog struct {
	kv.Store
	mu   sync.Mutex
	sets int
}

func (c *failingCatalog) Set(context.Context, kv.Key, []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return errCatalogDown
}

var errCatalogDown = errors.New("catalog unavailable")
