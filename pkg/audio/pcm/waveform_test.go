package pcm

import (
	"errors"
	"testing"
	"time"
)

func TestWaveformValidate(t *testing.T) {
	tests := []struct {
		name string
		w    *Waveform
		want error
	}{
		{"nil", nil, ErrEmptyWaveform},
		{"empty", &Waveform{SampleRate: 16000}, ErrEmptyWaveform},
		{"zero_rate", &Waveform{Samples: []float32{0.1}}, ErrInvalidSampleRate},
		{"negative_rate", &Waveform{Samples: []float32{0.1}, SampleRate: -1}, ErrInvalidSampleRate},
		{"ok", &Waveform{Samples: []float32{0.1}, SampleRate: 16000}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWaveformDuration(t *testing.T) {
	w := &Waveform{Samples: make([]float32, 8000), SampleRate: 16000}
	if got := w.Duration(); got != 500*time.Millisecond {
		t.Fatalf("Duration = %v, want 500ms", got)
	}
	if got := (&Waveform{Samples: make([]float32, 10)}).Duration(); got != 0 {
		t.Fatalf("Duration with zero rate = %v, want 0", got)
	}
}

func TestFromInt16LE(t *testing.T) {
	// 0x4000 = 16384 -> 0.5, 0xC000 = -16384 -> -0.5, 0x8000 -> -1.0
	data := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x80, 0x00, 0x00}
	w := FromInt16LE(data, 8000)
	want := []float32{0.5, -0.5, -1.0, 0}
	if w.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", w.Len(), len(want))
	}
	for i, v := range want {
		if w.Samples[i] != v {
			t.Errorf("sample %d = %v, want %v", i, w.Samples[i], v)
		}
	}
	if w.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", w.SampleRate)
	}
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := Downmix(stereo, 2)
	want := []float32{0.5, 0.5, 0}
	if len(mono) != len(want) {
		t.Fatalf("len = %d, want %d", len(mono), len(want))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, mono[i], want[i])
		}
	}

	same := []float32{0.1, 0.2}
	if got := Downmix(same, 1); &got[0] != &same[0] {
		t.Error("mono input should be returned unchanged")
	}
}

func TestFormatDecode(t *testing.T) {
	w, err := L16Mono16K.Decode([]byte{0x00, 0x40, 0x00, 0x40})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w.SampleRate != 16000 || w.Len() != 2 {
		t.Fatalf("got rate=%d len=%d", w.SampleRate, w.Len())
	}

	if _, err := L16Mono16K.Decode([]byte{0x00, 0x40, 0x01}); err == nil {
		t.Fatal("expected error for odd byte count")
	}
	if _, err := L16Mono16K.Decode(nil); !errors.Is(err, ErrEmptyWaveform) {
		t.Fatalf("Decode(nil) = %v, want ErrEmptyWaveform", err)
	}
}

func TestFormatForRate(t *testing.T) {
	for _, rate := range []int{8000, 16000, 24000, 48000} {
		f, ok := FormatForRate(rate)
		if !ok {
			t.Fatalf("FormatForRate(%d) not found", rate)
		}
		if f.SampleRate() != rate {
			t.Errorf("SampleRate = %d, want %d", f.SampleRate(), rate)
		}
	}
	if _, ok := FormatForRate(44100); ok {
		t.Error("FormatForRate(44100) should not be supported")
	}
	if got := L16Mono16K.Duration(32000); got != time.Second {
		t.Errorf("Duration(32000) = %v, want 1s", got)
	}
}
