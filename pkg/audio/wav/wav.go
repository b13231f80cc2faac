// Package wav reads and writes PCM WAV files as interleaved float32 samples.
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalid is returned for input that is not a readable PCM WAV stream.
var ErrInvalid = errors.New("wav: invalid file")

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// Audio is decoded PCM audio. Samples are interleaved and normalised to
// [-1, 1].
type Audio struct {
	Samples     []float32
	SampleRate  int
	NumChannels int
}

// Frames returns the number of sample frames.
func (a *Audio) Frames() int {
	if a.NumChannels <= 0 {
		return 0
	}
	return len(a.Samples) / a.NumChannels
}

// Duration returns the playback length.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.SampleRate)
}

// Mono returns a single-channel copy, averaging channels.
func (a *Audio) Mono() *Audio {
	out := &Audio{SampleRate: a.SampleRate, NumChannels: 1}
	if a.NumChannels <= 1 {
		out.Samples = append([]float32(nil), a.Samples...)
		return out
	}
	frames := a.Frames()
	out.Samples = make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range a.NumChannels {
			sum += a.Samples[i*a.NumChannels+c]
		}
		out.Samples[i] = sum / float32(a.NumChannels)
	}
	return out
}

// Read decodes a PCM WAV stream.
func Read(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalid
	}
	if d.WavAudioFormat != formatPCM && d.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: unsupported audio format %d", ErrInvalid, d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode: %w", err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalid, bitDepth)
	}

	// 8-bit WAV is unsigned.
	var offset float32
	if bitDepth == 8 {
		offset = 128
	}
	scale := float32(math.Pow(2, float64(bitDepth-1)))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float32(v) - offset) / scale
	}

	return &Audio{
		Samples:     samples,
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
	}, nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Decode decodes WAV bytes.
func Decode(data []byte) (*Audio, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes a as 16-bit PCM. Samples outside [-1, 1] are clamped.
func Write(w io.WriteSeeker, a *Audio) error {
	if a.SampleRate <= 0 || a.NumChannels <= 0 {
		return fmt.Errorf("wav: invalid format %d Hz, %d channels", a.SampleRate, a.NumChannels)
	}

	data := make([]int, len(a.Samples))
	for i, s := range a.Samples {
		clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
		data[i] = int(clamped * 32767)
	}

	enc := wav.NewEncoder(w, a.SampleRate, 16, a.NumChannels, formatPCM)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: a.SampleRate, NumChannels: a.NumChannels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	return nil
}

// WriteFile encodes a to path.
func WriteFile(path string, a *Audio) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode returns a encoded as 16-bit PCM WAV bytes. The encoder needs to
// seek back to patch the header, so it writes through a temp file.
func Encode(a *Audio) ([]byte, error) {
	tmp, err := os.CreateTemp("", "sherpa-*.wav")
	if err != nil {
		return nil, fmt.Errorf("wav: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := Write(tmp, a); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(tmp)
}
