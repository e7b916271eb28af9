package pcm

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by Waveform.Validate.
var (
	ErrEmptyWaveform     = errors.New("pcm: waveform has no samples")
	ErrInvalidSampleRate = errors.New("pcm: sample rate must be positive")
)

// Waveform is decoded mono audio. Samples are normalized to [-1, 1].
//
// A Waveform is created by a loader, handed to an embedding extractor and
// then dropped; it is never persisted.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Validate checks the waveform invariants: a positive sample rate and at
// least one sample.
func (w *Waveform) Validate() error {
	if w == nil || len(w.Samples) == 0 {
		return ErrEmptyWaveform
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleRate, w.SampleRate)
	}
	return nil
}

// Len returns the number of samples.
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// Duration returns the playback duration of the waveform.
func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// FromInt16LE converts mono PCM16 little-endian bytes to a
// Waveform at the given rate. A trailing odd byte is ignored.
func FromInt16LE(data []byte, rate int) *Waveform {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(data[2*i]) | int16(data[2*i+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return &Waveform{Samples: samples, SampleRate: rate}
}

// Downmix averages interleaved multi-channel samples into mono.
// For channels <= 1 the input is returned unchanged.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
