package resampler

import (
	"fmt"
	"slices"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Convert returns samples converted from src to dst. Channels are converted
// first so the rate converter runs on the destination layout. Identical
// formats return a copy.
func Convert(samples []float32, src, dst Format) ([]float32, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if err := dst.validate(); err != nil {
		return nil, err
	}
	if len(samples)%src.Channels != 0 {
		return nil, fmt.Errorf("resampler: %d samples is not a multiple of %d channels", len(samples), src.Channels)
	}

	out, err := convertChannels(samples, src.Channels, dst.Channels)
	if err != nil {
		return nil, err
	}
	if src.SampleRate == dst.SampleRate {
		if src.Channels == dst.Channels {
			return slices.Clone(samples), nil
		}
		return out, nil
	}
	if len(out) == 0 {
		return []float32{}, nil
	}
	return resample(out, src.SampleRate, dst.SampleRate, dst.Channels)
}

// convertChannels maps interleaved audio from srcCh to dstCh channels.
// The input slice is returned unchanged when the layouts match.
func convertChannels(samples []float32, srcCh, dstCh int) ([]float32, error) {
	switch {
	case srcCh == dstCh:
		return samples, nil
	case srcCh == 1:
		out := make([]float32, len(samples)*dstCh)
		for i, v := range samples {
			for c := range dstCh {
				out[i*dstCh+c] = v
			}
		}
		return out, nil
	case dstCh == 1:
		return Downmix(samples, srcCh), nil
	default:
		return nil, fmt.Errorf("resampler: unsupported channel conversion %d -> %d", srcCh, dstCh)
	}
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return slices.Clone(samples)
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func resample(samples []float32, srcRate, dstRate, channels int) ([]float32, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, v := range samples {
		input[i] = float64(v)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resampler: flush error: %w", err)
	}
	output = append(output, tail...)

	// Keep whole frames only.
	output = output[:len(output)/channels*channels]
	out := make([]float32, len(output))
	for i, v := range output {
		out[i] = float32(v)
	}
	return out, nil
}
