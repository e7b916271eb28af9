package voiceprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/haivivi/speakerid/pkg/audio/pcm"
)

// Loader turns an audio file into a mono waveform.
type Loader interface {
	// Load decodes path. Failures are *LoadError and no waveform is
	// returned.
	Load(ctx context.Context, path string) (*pcm.Waveform, error)
}

// Decode failures wrapped in LoadError.
var (
	errUnsupportedFormat = errors.New("unsupported audio format")
	errNoAudio           = errors.New("file contains no audio samples")
)

// wavFormatPCM and wavFormatExtensible are the WAVE format tags FileLoader
// decodes as integer PCM.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// FileLoader loads RIFF/WAVE integer PCM files and raw headerless PCM16
// files (.pcm, .raw). Multi-channel audio is averaged down to mono; the
// sample rate is left as recorded.
type FileLoader struct {
	// RawFormat describes headerless files. The zero value is
	// pcm.L16Mono16K.
	RawFormat pcm.Format
}

// NewFileLoader returns a FileLoader reading raw files as rawFormat.
func NewFileLoader(rawFormat pcm.Format) *FileLoader {
	return &FileLoader{RawFormat: rawFormat}
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context, path string) (*pcm.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var w *pcm.Waveform
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".pcm" || ext == ".raw":
		w, err = l.RawFormat.Decode(data)
	case ext == ".wav" || isRIFF(data):
		w, err = decodeWAV(data)
	default:
		err = fmt.Errorf("%w: %q", errUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := w.Validate(); err != nil {
		return nil, &LoadError{Path: path, Err: errors.Join(errNoAudio, err)}
	}
	return w, nil
}

func isRIFF(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func decodeWAV(data []byte) (*pcm.Waveform, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAVE file", errUnsupportedFormat)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAVE format tag %d", errUnsupportedFormat, d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: missing channel count", errUnsupportedFormat)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", errUnsupportedFormat, depth)
	}

	interleaved := make([]float32, len(buf.Data))
	if depth == 8 {
		// 8-bit WAVE is unsigned with a 128 midpoint.
		for i, s := range buf.Data {
			interleaved[i] = float32(s-128) / 128
		}
	} else {
		scale := float32(int64(1) << (depth - 1))
		for i, s := range buf.Data {
			interleaved[i] = float32(s) / scale
		}
	}
	return &pcm.Waveform{
		Samples:    pcm.Downmix(interleaved, buf.Format.NumChannels),
		SampleRate: buf.Format.SampleRate,
	}, nil
}
