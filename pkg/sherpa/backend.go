package sherpa

import "unsafe"

// backend is the native call table. The cgo implementation talks to
// sherpa-onnx; the stub implementation refuses to create anything.
type backend interface {
	Available() bool
	CreateSourceSeparation(cfg *nativeSeparationConfig) separationNative
	CreateZipVoiceTTS(cfg *nativeZipVoiceConfig) ttsNative
}

// NativeAvailable reports whether the binary links sherpa-onnx.
func NativeAvailable() bool { return nativeBackend.Available() }

// separationNative is one native source separation instance.
type separationNative interface {
	SampleRate() int
	NumStems() int
	// Process returns nil when the native call fails.
	Process(samples []float32, sampleRate, numChannels int) *rawSeparation
	Destroy()
}

// ttsNative is one native offline TTS instance configured for ZipVoice.
type ttsNative interface {
	SampleRate() int
	// Generate returns nil when the native call fails.
	Generate(text, promptText string, promptSamples []float32, promptSampleRate int, speed float32, numSteps int) *rawAudio
	Destroy()
}

// nativeSeparationConfig is the flattened form of SeparationConfig. Both
// model families are always present; the unused one holds empty strings.
type nativeSeparationConfig struct {
	SpleeterVocals        string
	SpleeterAccompaniment string
	UVRModel              string
	NumThreads            int
	Debug                 bool
	Provider              string
}

// nativeZipVoiceConfig is the flattened form of ZipVoiceConfig.
type nativeZipVoiceConfig struct {
	Tokens  string
	Encoder string
	Decoder string
	Vocoder string
	DataDir string
	Lexicon string

	FeatScale     float32
	TShift        float32
	TargetRMS     float32
	GuidanceScale float32

	NumThreads int
	Debug      bool
	Provider   string

	MaxNumSentences int
	// RuleFsts and RuleFars are comma separated; empty means NULL.
	RuleFsts     string
	RuleFars     string
	SilenceScale float32
}

// rawStem describes one native stem. samples points into native memory and
// is only valid until the owning rawSeparation is released.
type rawStem struct {
	samples     unsafe.Pointer
	n           int
	sampleRate  int
	numChannels int
}

// rawSeparation is a native separation result awaiting copy-out.
type rawSeparation struct {
	numStems int
	// hasStems reports whether the native stem array pointer is non-NULL.
	hasStems bool
	// stem reads descriptor i. Callers must bound i by numStems first.
	stem    func(i int) rawStem
	release func()
}

// rawAudio is a native generated audio buffer awaiting copy-out.
type rawAudio struct {
	samples    unsafe.Pointer
	n          int
	sampleRate int
	release    func()
}

// copyFloats copies n float32 values starting at p into a new slice.
// A nil pointer or non-positive count yields an empty slice.
func copyFloats(p unsafe.Pointer, n int) []float32 {
	if p == nil || n <= 0 {
		return []float32{}
	}
	out := make([]float32, n)
	copy(out, unsafe.Slice((*float32)(p), n))
	return out
}
