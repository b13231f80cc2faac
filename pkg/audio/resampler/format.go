package resampler

import "fmt"

// Format describes interleaved float32 audio.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g., 16000, 44100).
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int
}

// Mono returns a single-channel format at rate.
func Mono(rate int) Format {
	return Format{SampleRate: rate, Channels: 1}
}

// Stereo returns a two-channel format at rate.
func Stereo(rate int) Format {
	return Format{SampleRate: rate, Channels: 2}
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("resampler: invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("resampler: invalid channel count %d", f.Channels)
	}
	return nil
}
