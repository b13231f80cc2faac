// Package resampler converts interleaved float32 audio between sample rates
// and channel layouts.
//
// Sample rate conversion uses github.com/tphakala/go-audio-resampling, a pure
// Go port of libsoxr, at its high quality preset. Channel conversion handles
// mono to N channels (duplication) and N channels to mono (averaging).
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 16000, Channels: 1}
//	dst := resampler.Format{SampleRate: 44100, Channels: 2}
//	out, err := resampler.Convert(samples, src, dst)
//	if err != nil {
//	    log.Fatal(err)
//	}
package resampler
