// Package fbank computes log mel filterbank features from waveforms.
//
// This is the acoustic front end shared by speaker embedding extractors.
// The output is a [T, numMels] float32 matrix; [Pool] reduces it to
// per-channel statistics for utterance-level embeddings.
//
// Default parameters follow the Kaldi convention used by speaker models:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumMels:     80
//	LowFreq:     20
//	HighFreq:  7600
//	PreEmphasis: 0.97
package fbank

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrTooShort is returned when the input is shorter than one analysis window.
var ErrTooShort = errors.New("fbank: audio shorter than one window")

// logFloor keeps log energies finite for silent frames.
const logFloor = 1e-10

// Config controls mel filterbank extraction parameters.
type Config struct {
	SampleRate  int     // audio sample rate in Hz (default 16000)
	WindowSize  int     // window length in samples (default 400 = 25ms)
	HopSize     int     // hop length in samples (default 160 = 10ms)
	FFTSize     int     // FFT size, power of two >= WindowSize (default 512)
	NumMels     int     // number of mel bins (default 80)
	LowFreq     float64 // lowest mel frequency (default 20)
	HighFreq    float64 // highest mel frequency (default 7600)
	PreEmphasis float64 // pre-emphasis coefficient (default 0.97)
}

// DefaultConfig returns the standard 16kHz speaker front-end config.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     80,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
	}
}

// Validate reports whether the config describes a usable front end.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("fbank: invalid sample rate %d", c.SampleRate)
	case c.WindowSize <= 1 || c.HopSize <= 0:
		return fmt.Errorf("fbank: invalid window %d / hop %d", c.WindowSize, c.HopSize)
	case c.FFTSize < c.WindowSize || c.FFTSize&(c.FFTSize-1) != 0:
		return fmt.Errorf("fbank: FFT size %d must be a power of two >= window %d", c.FFTSize, c.WindowSize)
	case c.NumMels <= 0:
		return fmt.Errorf("fbank: invalid mel count %d", c.NumMels)
	case c.HighFreq <= c.LowFreq || c.HighFreq > float64(c.SampleRate)/2:
		return fmt.Errorf("fbank: invalid band [%g, %g] for %dHz", c.LowFreq, c.HighFreq, c.SampleRate)
	}
	return nil
}

// Extractor computes mel filterbank features from PCM samples.
// It is immutable after New and safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
	spec    *spectrum
}

// New creates a new fbank Extractor with the given config.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:     cfg,
		window:  hammingWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
		spec:    newSpectrum(cfg.FFTSize),
	}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// NumFrames returns the number of frames Extract yields for n samples.
func (e *Extractor) NumFrames(n int) int {
	if n < e.cfg.WindowSize {
		return 0
	}
	return (n-e.cfg.WindowSize)/e.cfg.HopSize + 1
}

// Extract computes log mel filterbank features from normalized float32
// samples (range [-1, 1]) at the configured sample rate.
// Output: [T][numMels] where T = (len(pcm) - windowSize) / hopSize + 1.
func (e *Extractor) Extract(pcm []float32) ([][]float32, error) {
	return e.ExtractContext(context.Background(), pcm)
}

// ExtractContext is like Extract but stops early when ctx is done.
func (e *Extractor) ExtractContext(ctx context.Context, pcm []float32) ([][]float32, error) {
	cfg := e.cfg
	numFrames := e.NumFrames(len(pcm))
	if numFrames == 0 {
		return nil, fmt.Errorf("%w: %d samples, window %d", ErrTooShort, len(pcm), cfg.WindowSize)
	}

	features := make([][]float32, numFrames)
	frame := make([]float64, cfg.FFTSize)
	re := make([]float64, cfg.FFTSize/2)
	im := make([]float64, cfg.FFTSize/2)
	power := make([]float64, e.spec.bins())

	for t := 0; t < numFrames; t++ {
		if t%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start := t * cfg.HopSize

		// Pre-emphasis, window, zero-pad.
		for i := 0; i < cfg.WindowSize; i++ {
			s := float64(pcm[start+i])
			if i > 0 {
				s -= cfg.PreEmphasis * float64(pcm[start+i-1])
			}
			frame[i] = s * e.window[i]
		}
		clear(frame[cfg.WindowSize:])
		e.spec.power(frame, re, im, power)

		mel := make([]float32, cfg.NumMels)
		for m, filter := range e.melBank {
			var sum float64
			for k, w := range filter {
				if w != 0 {
					sum += w * power[k]
				}
			}
			if sum < logFloor {
				sum = logFloor
			}
			mel[m] = float32(math.Log(sum))
		}
		features[t] = mel
	}
	return features, nil
}

// Pool returns the per-channel mean and standard deviation across frames.
// It is the statistics pooling step used to turn a variable-length feature
// matrix into a fixed-length utterance vector.
func Pool(features [][]float32) (mean, std []float32) {
	if len(features) == 0 {
		return nil, nil
	}
	dims := len(features[0])
	n := float64(len(features))
	mean = make([]float32, dims)
	std = make([]float32, dims)
	for d := 0; d < dims; d++ {
		var sum float64
		for _, f := range features {
			sum += float64(f[d])
		}
		mu := sum / n
		var varSum float64
		for _, f := range features {
			diff := float64(f[d]) - mu
			varSum += diff * diff
		}
		mean[d] = float32(mu)
		std[d] = float32(math.Sqrt(varSum / n))
	}
	return mean, std
}

// CMVN applies cepstral mean and variance normalization in place: each mel
// dimension gets zero mean and unit variance across frames.
func CMVN(features [][]float32) {
	mean, std := Pool(features)
	for d := range mean {
		s := float64(std[d])
		if s < logFloor {
			s = logFloor
		}
		for _, f := range features {
			f[d] = float32((float64(f[d]) - float64(mean[d])) / s)
		}
	}
}
