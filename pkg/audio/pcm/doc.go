// Package pcm provides the in-memory waveform representation used by the
// speaker pipeline and the raw L16 formats it can decode.
//
// Key types:
//   - Waveform: mono float32 samples in [-1, 1] plus a sample rate
//   - Format: a headerless 16-bit little-endian PCM layout (rate, channels)
//
// Example usage:
//
//	// Decode 16kHz mono PCM16 bytes
//	w, err := pcm.L16Mono16K.Decode(data)
//
//	// Duration of the loaded audio
//	d := w.Duration()
package pcm
