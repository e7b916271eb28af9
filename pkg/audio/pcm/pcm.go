package pcm

import (
	"fmt"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
	// L16Mono8K represents audio/L16; rate=8000; channels=1
	L16Mono8K
)

// Format represents a headerless 16-bit little-endian PCM layout.
type Format int

// FormatForRate returns the mono L16 format with the given sample rate.
func FormatForRate(rate int) (Format, bool) {
	switch rate {
	case 8000:
		return L16Mono8K, true
	case 16000:
		return L16Mono16K, true
	case 24000:
		return L16Mono24K, true
	case 48000:
		return L16Mono48K, true
	}
	return 0, false
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono8K:
		return 8000
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K:
		return 1
	}
	panic("pcm: invalid audio type")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K:
		return 16
	}
	panic("pcm: invalid audio type")
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.Channels()) / int64(f.Depth())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// Decode converts raw PCM16 little-endian bytes in this format into a
// Waveform. A trailing odd byte is rejected rather than dropped.
func (f Format) Decode(data []byte) (*Waveform, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm: odd byte count %d for 16-bit samples", len(data))
	}
	w := FromInt16LE(data, f.SampleRate())
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K:
		return fmt.Sprintf("audio/L16; rate=%d; channels=1", f.SampleRate())
	}
	return fmt.Sprintf("pcm.Format(%d)", int(f))
}
