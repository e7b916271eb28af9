package resampler

import (
	"errors"
	"math"
	"testing"

	"github.com/haivivi/speakerid/pkg/audio/pcm"
)

func sine(freq float64, rate, n int) *pcm.Waveform {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return &pcm.Waveform{Samples: s, SampleRate: rate}
}

func TestResampleSameRate(t *testing.T) {
	w := sine(440, 16000, 1600)
	got, err := Resample(w, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if got != w {
		t.Fatal("same-rate resample should return the input waveform")
	}
}

func TestResampleDownsample(t *testing.T) {
	w := sine(440, 48000, 48000)
	got, err := Resample(w, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if got.SampleRate != 16000 {
		t.Fatalf("SampleRate = %d, want 16000", got.SampleRate)
	}
	if got.Len() < 15840 || got.Len() > 16000 {
		t.Fatalf("Len = %d, want 16000 within 1%%", got.Len())
	}
	for i, s := range got.Samples {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %v out of range", i, s)
		}
	}
}

func TestResampleKeepsTail(t *testing.T) {
	for _, tc := range []struct {
		from, to, n int
	}{
		{48000, 16000, 1000},
		{8000, 16000, 800},
		{44100, 16000, 4410},
	} {
		got, err := Resample(sine(440, tc.from, tc.n), tc.to)
		if err != nil {
			t.Fatalf("%d->%d: Resample: %v", tc.from, tc.to, err)
		}
		want := OutputLen(tc.n, tc.from, tc.to)
		if got.Len() > want || got.Len() < want*97/100 {
			t.Errorf("%d->%d: Len = %d, want %d", tc.from, tc.to, got.Len(), want)
		}
	}
}

func TestOutputLen(t *testing.T) {
	if got := OutputLen(1000, 48000, 16000); got != 334 {
		t.Errorf("OutputLen(1000, 48k, 16k) = %d, want 334", got)
	}
	if got := OutputLen(48000, 48000, 16000); got != 16000 {
		t.Errorf("OutputLen(48000, 48k, 16k) = %d, want 16000", got)
	}
}

func TestResampleInvalid(t *testing.T) {
	if _, err := Resample(&pcm.Waveform{SampleRate: 16000}, 8000); !errors.Is(err, pcm.ErrEmptyWaveform) {
		t.Fatalf("empty waveform: got %v", err)
	}
	if _, err := Resample(sine(440, 16000, 160), 0); err == nil {
		t.Fatal("expected error for zero target rate")
	}
}
