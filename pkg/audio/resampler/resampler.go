package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/haivivi/speakerid/pkg/audio/pcm"
)

// Resample returns w converted to the target sample rate using high
// quality filtering. When the rates already match, w is returned as is.
func Resample(w *pcm.Waveform, rate int) (*pcm.Waveform, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, fmt.Errorf("resampler: invalid target rate %d", rate)
	}
	if w.SampleRate == rate {
		return w, nil
	}

	input := make([]float64, len(w.Samples))
	for i, s := range w.Samples {
		input[i] = float64(s)
	}
	output, err := resampling.ResampleMono(input, float64(w.SampleRate), float64(rate), resampling.QualityHigh)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("resampler: %d samples at %dHz produced no output at %dHz",
			len(w.Samples), w.SampleRate, rate)
	}
	// The flushed filter tail may run past the nominal length.
	if want := OutputLen(len(w.Samples), w.SampleRate, rate); len(output) > want {
		output = output[:want]
	}

	samples := make([]float32, len(output))
	for i, s := range output {
		// Clamp filter overshoot back into the normalized range.
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		samples[i] = float32(s)
	}
	return &pcm.Waveform{Samples: samples, SampleRate: rate}, nil
}

// OutputLen returns the nominal length of n samples converted from one
// sample rate to another, rounded up.
func OutputLen(n, from, to int) int {
	return int((int64(n)*int64(to) + int64(from) - 1) / int64(from))
}
