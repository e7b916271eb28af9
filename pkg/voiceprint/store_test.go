package voiceprint

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/haivivi/speakerid/pkg/kv"
	"github.com/haivivi/speakerid/pkg/storage"
	"github.com/sbinet/npyio"
)

func TestStoreRoundTripBitExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	emb := Embedding{
		0.1, -0.2, 1e-38, math.Float32frombits(1), // subnormal
		float32(math.Copysign(0, -1)), 3.4e38, -1, 0.33333334,
	}
	rec := &Record{SpeakerID: "alice", Embedding: emb, Metadata: Metadata{ExtractorVersion: "v1"}}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(emb) {
		t.Fatalf("round trip changed bits:\n got %v\nwant %v", got, emb)
	}

	full, err := s.Record(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if full.Metadata.ExtractorVersion != "v1" || full.Metadata.Dimension != len(emb) {
		t.Fatalf("metadata = %+v", full.Metadata)
	}
	if full.Metadata.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestStoreGetUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, err = s.Record(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Record err = %v, want ErrNotFound", err)
	}
}

func TestStoreInvalidID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"", "../x", "a/b", ".hidden", "tab\tid"} {
		err := s.Put(ctx, &Record{SpeakerID: id, Embedding: Embedding{1}})
		if !errors.Is(err, ErrInvalidSpeakerID) {
			t.Errorf("Put(%q) err = %v, want ErrInvalidSpeakerID", id, err)
		}
	}
}

func TestStoreRejectsDegenerate(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), &Record{SpeakerID: "z", Embedding: Embedding{0, 0}})
	if !errors.Is(err, ErrDegenerateEmbedding) {
		t.Fatalf("err = %v, want ErrDegenerateEmbedding", err)
	}
}

func TestStoreReadsUncatalogedVector(t *testing.T) {
	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(files, kv.NewMemory(&kv.Options{Separator: CatalogSeparator}))
	ctx := context.Background()

	var buf bytes.Buffer
	if err := npyio.Write(&buf, []float32{0.5, 0.25, -0.125}); err != nil {
		t.Fatal(err)
	}
	if err := storage.WriteFile(ctx, files, "legacy.npy", buf.Bytes()); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Record(ctx, "legacy")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Embedding.Equal(Embedding{0.5, 0.25, -0.125}) {
		t.Fatalf("embedding = %v", rec.Embedding)
	}
	if rec.Metadata.SpeakerID != "legacy" || rec.Metadata.Dimension != 3 || rec.Metadata.ExtractorVersion != "" {
		t.Fatalf("metadata = %+v", rec.Metadata)
	}
	metas, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Fatalf("List = %v, want uncataloged vector omitted", metas)
	}
}

func TestStoreCatalogFailureRestoresPrevious(t *testing.T) {
	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	mem := kv.NewMemory(&kv.Options{Separator: CatalogSeparator})
	ctx := context.Background()

	good := NewStore(files, mem)
	old := Embedding{1, 2, 3}
	if err := good.Put(ctx, &Record{SpeakerID: "bob", Embedding: old}); err != nil {
		t.Fatal(err)
	}

	broken := NewStore(files, &failingCatalog{Store: mem})
	err = broken.Put(ctx, &Record{SpeakerID: "bob", Embedding: Embedding{9, 9, 9}})
	if !errors.Is(err, errCatalogDown) {
		t.Fatalf("err = %v, want catalog error", err)
	}
	got, err := good.Get(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(old) {
		t.Fatalf("vector = %v, want previous %v", got, old)
	}

	err = broken.Put(ctx, &Record{SpeakerID: "carol", Embedding: Embedding{1}})
	if err == nil {
		t.Fatal("expected error")
	}
	if ok, _ := good.Exists(ctx, "carol"); ok {
		t.Fatal("new vector file left behind after failed Put")
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete unknown err = %v", err)
	}
	if err := s.Put(ctx, &Record{SpeakerID: "dave", Embedding: Embedding{1, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "dave"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "dave"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete err = %v", err)
	}
	metas, _ := s.List(ctx)
	if len(metas) != 0 {
		t.Fatalf("List after delete = %v", metas)
	}
}

func TestStoreListOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, id := range []string{"carol", "alice", "bob:2", "bob"} {
		rec := &Record{SpeakerID: id, Embedding: Embedding{1, 1}, Metadata: Metadata{CreatedAt: created}}
		if err := s.Put(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	metas, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, m := range metas {
		ids = append(ids, m.SpeakerID)
		if !m.CreatedAt.Equal(created) {
			t.Errorf("%s CreatedAt = %v", m.SpeakerID, m.CreatedAt)
		}
	}
	want := []string{"alice", "bob", "bob:2", "carol"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestStoreConcurrentPutSameID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emb := make(Embedding, i+1)
			for j := range emb {
				emb[j] = 1
			}
			if err := s.Put(ctx, &Record{SpeakerID: "erin", Embedding: emb}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	rec, err := s.Record(ctx, "erin")
	if err != nil {
		t.Fatal(err)
	}
	metas, _ := s.List(ctx)
	if len(metas) != 1 || metas[0].Dimension != len(rec.Embedding) {
		t.Fatalf("catalog dimension %v disagrees with vector length %d", metas, len(rec.Embedding))
	}
}

func TestStoreCreateRejectsExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, &Record{SpeakerID: "dana", Embedding: Embedding{1, 0}}); err != nil {
		t.Fatal(err)
	}
	err := s.Create(ctx, &Record{SpeakerID: "dana", Embedding: Embedding{0, 1}})
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("second Create = %v, want ErrAlreadyEnrolled", err)
	}
	emb, err := s.Get(ctx, "dana")
	if err != nil {
		t.Fatal(err)
	}
	if !emb.Equal(Embedding{1, 0}) {
		t.Errorf("stored = %v, want the first record", emb)
	}
}
