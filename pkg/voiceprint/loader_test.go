package voiceprint

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/haivivi/speakerid/pkg/audio/pcm"
)

func TestLoadWAVMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, 22050, 1, []int{0, 16384, -16384, 32767, -32768})

	w, err := (&FileLoader{}).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if w.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050 (no resampling at load)", w.SampleRate)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768, -1}
	if len(w.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(w.Samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(w.Samples[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, w.Samples[i], want[i])
		}
	}
}

func TestLoadWAVStereoDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	// Frames: (L, R) = (16384, 0), (-16384, -16384)
	writeWAV(t, path, 16000, 2, []int{16384, 0, -16384, -16384})

	w, err := (&FileLoader{}).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Samples) != 2 {
		t.Fatalf("got %d samples, want 2 mono frames", len(w.Samples))
	}
	if w.Samples[0] != 0.25 || w.Samples[1] != -0.5 {
		t.Fatalf("samples = %v, want [0.25 -0.5]", w.Samples)
	}
}

func TestLoadRawPCM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.pcm")
	// 0x4000 = 16384, 0xC000 = -16384 little-endian
	if err := os.WriteFile(path, []byte{0x00, 0x40, 0x00, 0xC0}, 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewFileLoader(pcm.L16Mono8K).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if w.SampleRate != 8000 || len(w.Samples) != 2 || w.Samples[0] != 0.5 || w.Samples[1] != -0.5 {
		t.Fatalf("waveform = %+v", w)
	}
}

func TestLoadRIFFWithoutExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.bin")
	writeWAV(t, path, 16000, 1, tone(440, 16000, 400))
	w, err := (&FileLoader{}).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if w.Len() != 400 {
		t.Fatalf("Len = %d", w.Len())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	empty := filepath.Join(dir, "empty.wav")
	writeWAV(t, empty, 16000, 1, nil)

	tests := map[string]string{
		"missing":     filepath.Join(dir, "missing.wav"),
		"garbage wav": write("garbage.wav", []byte("definitely not audio")),
		"odd raw":     write("odd.raw", []byte{1, 2, 3}),
		"empty raw":   write("empty.pcm", nil),
		"empty wav":   empty,
		"unknown ext": write("notes.txt", []byte("hello")),
		"directory":   dir,
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			w, err := (&FileLoader{}).Load(context.Background(), path)
			if w != nil {
				t.Errorf("got waveform %+v with error", w)
			}
			var le *LoadError
			if !errors.As(err, &le) || le.Path != path {
				t.Fatalf("err = %v, want *LoadError for %s", err, path)
			}
			if !errors.Is(err, ErrLoad) {
				t.Fatalf("err = %v does not match ErrLoad", err)
			}
		})
	}
}
