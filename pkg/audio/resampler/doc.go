// Package resampler converts waveforms between sample rates using a pure Go
// polyphase resampler (no CGO dependencies).
//
// Speaker embedding front ends expect a fixed input rate (typically
// 16kHz). Loaders keep the file's native rate; extractors call
// [Resample] to bring the waveform to the rate their model was trained on.
//
// Example usage:
//
//	w16k, err := resampler.Resample(w, 16000)
//	if err != nil {
//	    return err
//	}
package resampler
