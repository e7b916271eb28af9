// Package audio is the umbrella for the audio front end of the speaker
// pipeline:
//
//   - pcm: waveform representation and raw L16 decoding
//   - resampler: sample rate conversion
//   - fbank: log mel filterbank features
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/speakerid/pkg/audio/fbank"
//	    "github.com/haivivi/speakerid/pkg/audio/pcm"
//	)
//
//	w, err := pcm.L16Mono16K.Decode(data)
//	ext, err := fbank.New(fbank.DefaultConfig())
//	feats, err := ext.Extract(w.Samples)
package audio
