package sherpa

import (
	"sync"
	"testing"
	"unsafe"
)

// fakeBackend records every native call so tests can assert on the
// marshalled configs and on release counts.
type fakeBackend struct {
	mu sync.Mutex

	unavailable bool
	failCreate  bool

	sepConfigs []nativeSeparationConfig
	ttsConfigs []nativeZipVoiceConfig

	sep *fakeSeparation
	tts *fakeTTS
}

func (b *fakeBackend) Available() bool { return !b.unavailable }

func (b *fakeBackend) CreateSourceSeparation(cfg *nativeSeparationConfig) separationNative {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sepConfigs = append(b.sepConfigs, *cfg)
	if b.failCreate || b.unavailable {
		return nil
	}
	if b.sep == nil {
		b.sep = newFakeSeparation(44100, 2)
	}
	return b.sep
}

func (b *fakeBackend) CreateZipVoiceTTS(cfg *nativeZipVoiceConfig) ttsNative {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ttsConfigs = append(b.ttsConfigs, *cfg)
	if b.failCreate || b.unavailable {
		return nil
	}
	if b.tts == nil {
		b.tts = &fakeTTS{sampleRate: 24000}
	}
	return b.tts
}

// useFake installs b as the native backend for the duration of the test.
func useFake(t *testing.T, b *fakeBackend) *fakeBackend {
	t.Helper()
	prev := nativeBackend
	nativeBackend = b
	t.Cleanup(func() { nativeBackend = prev })
	return b
}

type fakeSeparation struct {
	mu sync.Mutex

	sampleRate int
	numStems   int

	// result overrides the default echo result when non-nil.
	result func(samples []float32, numChannels int) *rawSeparation
	// block, when set, is received from before Process returns.
	block chan struct{}

	calls     int
	destroyed int
	released  int
}

func newFakeSeparation(sampleRate, numStems int) *fakeSeparation {
	return &fakeSeparation{sampleRate: sampleRate, numStems: numStems}
}

func (s *fakeSeparation) SampleRate() int { return s.sampleRate }
func (s *fakeSeparation) NumStems() int   { return s.numStems }

func (s *fakeSeparation) Process(samples []float32, sampleRate, numChannels int) *rawSeparation {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.result != nil {
		return s.result(samples, numChannels)
	}

	// Default: every stem is a scaled copy of the input.
	bufs := make([][]float32, s.numStems)
	for i := range bufs {
		bufs[i] = make([]float32, len(samples))
		for j, v := range samples {
			bufs[i][j] = v * float32(i+1)
		}
	}
	return s.raw(bufs, sampleRate, numChannels)
}

// raw wraps Go buffers as a native result whose release is counted.
func (s *fakeSeparation) raw(bufs [][]float32, sampleRate, numChannels int) *rawSeparation {
	return &rawSeparation{
		numStems: len(bufs),
		hasStems: true,
		stem: func(i int) rawStem {
			st := rawStem{n: len(bufs[i]), sampleRate: sampleRate, numChannels: numChannels}
			if len(bufs[i]) > 0 {
				st.samples = unsafe.Pointer(&bufs[i][0])
			}
			return st
		},
		release: func() {
			s.mu.Lock()
			s.released++
			s.mu.Unlock()
		},
	}
}

func (s *fakeSeparation) Destroy() {
	s.mu.Lock()
	s.destroyed++
	s.mu.Unlock()
}

func (s *fakeSeparation) counts() (calls, destroyed, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.destroyed, s.released
}

type fakeTTS struct {
	mu sync.Mutex

	sampleRate int
	result     func(text string) *rawAudio
	block      chan struct{}

	lastText         string
	lastPromptText   string
	lastPromptLen    int
	lastPromptRate   int
	lastSpeed        float32
	lastNumSteps     int
	calls, destroyed int
	released         int
}

func (t *fakeTTS) SampleRate() int { return t.sampleRate }

func (t *fakeTTS) Generate(text, promptText string, promptSamples []float32, promptSampleRate int, speed float32, numSteps int) *rawAudio {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	t.calls++
	t.lastText = text
	t.lastPromptText = promptText
	t.lastPromptLen = len(promptSamples)
	t.lastPromptRate = promptSampleRate
	t.lastSpeed = speed
	t.lastNumSteps = numSteps
	t.mu.Unlock()

	if t.result != nil {
		return t.result(text)
	}
	// 0.1 s of audio per character.
	buf := make([]float32, len(text)*t.sampleRate/10)
	for i := range buf {
		buf[i] = 0.25
	}
	return t.raw(buf, t.sampleRate)
}

func (t *fakeTTS) raw(buf []float32, sampleRate int) *rawAudio {
	a := &rawAudio{n: len(buf), sampleRate: sampleRate, release: t.release}
	if len(buf) > 0 {
		a.samples = unsafe.Pointer(&buf[0])
	}
	return a
}

func (t *fakeTTS) release() {
	t.mu.Lock()
	t.released++
	t.mu.Unlock()
}

func (t *fakeTTS) Destroy() {
	t.mu.Lock()
	t.destroyed++
	t.mu.Unlock()
}

func (t *fakeTTS) counts() (calls, destroyed, released int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls, t.destroyed, t.released
}
