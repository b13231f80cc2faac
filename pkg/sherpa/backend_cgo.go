//go:build sherpa && cgo

package sherpa

/*
#cgo LDFLAGS: -lsherpa-onnx-c-api -lonnxruntime
#include <stdlib.h>
#include <sherpa-onnx/c-api/c-api.h>
*/
import "C"

import "unsafe"

var nativeBackend backend = cgoBackend{}

type cgoBackend struct{}

func (cgoBackend) Available() bool { return true }

func boolToInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// --------------------------------------------------------------------------
// Source separation
// --------------------------------------------------------------------------

func (cgoBackend) CreateSourceSeparation(cfg *nativeSeparationConfig) separationNative {
	cVocals := C.CString(cfg.SpleeterVocals)
	defer C.free(unsafe.Pointer(cVocals))
	cAccompaniment := C.CString(cfg.SpleeterAccompaniment)
	defer C.free(unsafe.Pointer(cAccompaniment))
	cUVR := C.CString(cfg.UVRModel)
	defer C.free(unsafe.Pointer(cUVR))
	cProvider := C.CString(cfg.Provider)
	defer C.free(unsafe.Pointer(cProvider))

	c := C.struct_SherpaOnnxOfflineSourceSeparationConfig{}
	c.model.spleeter.vocals = cVocals
	c.model.spleeter.accompaniment = cAccompaniment
	c.model.uvr.model = cUVR
	c.model.num_threads = C.int(cfg.NumThreads)
	c.model.debug = boolToInt(cfg.Debug)
	c.model.provider = cProvider

	ss := C.SherpaOnnxCreateOfflineSourceSeparation(&c)
	if ss == nil {
		return nil
	}
	return &cgoSeparation{ss: ss}
}

type cgoSeparation struct {
	ss *C.SherpaOnnxOfflineSourceSeparation
}

func (s *cgoSeparation) SampleRate() int {
	return int(C.SherpaOnnxOfflineSourceSeparationGetSampleRate(s.ss))
}

func (s *cgoSeparation) NumStems() int {
	return int(C.SherpaOnnxOfflineSourceSeparationGetNumStems(s.ss))
}

func (s *cgoSeparation) Process(samples []float32, sampleRate, numChannels int) *rawSeparation {
	out := C.SherpaOnnxOfflineSourceSeparationProcess(
		s.ss,
		(*C.float)(unsafe.Pointer(&samples[0])),
		C.int(len(samples)),
		C.int(sampleRate),
		C.int(numChannels),
	)
	if out == nil {
		return nil
	}

	n := int(out.num_stems)
	return &rawSeparation{
		numStems: n,
		hasStems: out.stems != nil,
		stem: func(i int) rawStem {
			st := unsafe.Slice(out.stems, n)[i]
			return rawStem{
				samples:     unsafe.Pointer(st.samples),
				n:           int(st.n),
				sampleRate:  int(st.sample_rate),
				numChannels: int(st.num_channels),
			}
		},
		release: func() {
			C.SherpaOnnxDestroyOfflineSourceSeparationResult(out)
		},
	}
}

func (s *cgoSeparation) Destroy() {
	C.SherpaOnnxDestroyOfflineSourceSeparation(s.ss)
}

// --------------------------------------------------------------------------
// ZipVoice TTS
// --------------------------------------------------------------------------

func (cgoBackend) CreateZipVoiceTTS(cfg *nativeZipVoiceConfig) ttsNative {
	cTokens := C.CString(cfg.Tokens)
	defer C.free(unsafe.Pointer(cTokens))
	cEncoder := C.CString(cfg.Encoder)
	defer C.free(unsafe.Pointer(cEncoder))
	cDecoder := C.CString(cfg.Decoder)
	defer C.free(unsafe.Pointer(cDecoder))
	cVocoder := C.CString(cfg.Vocoder)
	defer C.free(unsafe.Pointer(cVocoder))
	cDataDir := C.CString(cfg.DataDir)
	defer C.free(unsafe.Pointer(cDataDir))
	cLexicon := C.CString(cfg.Lexicon)
	defer C.free(unsafe.Pointer(cLexicon))
	cProvider := C.CString(cfg.Provider)
	defer C.free(unsafe.Pointer(cProvider))

	// Zero value leaves the vits/matcha/kokoro/kitten slots empty.
	c := C.struct_SherpaOnnxOfflineTtsConfig{}

	c.model.zipvoice.tokens = cTokens
	c.model.zipvoice.encoder = cEncoder
	c.model.zipvoice.decoder = cDecoder
	c.model.zipvoice.vocoder = cVocoder
	c.model.zipvoice.data_dir = cDataDir
	c.model.zipvoice.lexicon = cLexicon
	c.model.zipvoice.feat_scale = C.float(cfg.FeatScale)
	c.model.zipvoice.t_shift = C.float(cfg.TShift)
	c.model.zipvoice.target_rms = C.float(cfg.TargetRMS)
	c.model.zipvoice.guidance_scale = C.float(cfg.GuidanceScale)

	c.model.num_threads = C.int(cfg.NumThreads)
	c.model.debug = boolToInt(cfg.Debug)
	c.model.provider = cProvider

	c.max_num_sentences = C.int(cfg.MaxNumSentences)
	c.silence_scale = C.float(cfg.SilenceScale)
	if cfg.RuleFsts != "" {
		cFsts := C.CString(cfg.RuleFsts)
		defer C.free(unsafe.Pointer(cFsts))
		c.rule_fsts = cFsts
	}
	if cfg.RuleFars != "" {
		cFars := C.CString(cfg.RuleFars)
		defer C.free(unsafe.Pointer(cFars))
		c.rule_fars = cFars
	}

	tts := C.SherpaOnnxCreateOfflineTts(&c)
	if tts == nil {
		return nil
	}
	return &cgoTTS{tts: tts}
}

type cgoTTS struct {
	tts *C.SherpaOnnxOfflineTts
}

func (t *cgoTTS) SampleRate() int {
	return int(C.SherpaOnnxOfflineTtsSampleRate(t.tts))
}

func (t *cgoTTS) Generate(text, promptText string, promptSamples []float32, promptSampleRate int, speed float32, numSteps int) *rawAudio {
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))
	cPromptText := C.CString(promptText)
	defer C.free(unsafe.Pointer(cPromptText))

	var cPrompt *C.float
	if len(promptSamples) > 0 {
		cPrompt = (*C.float)(unsafe.Pointer(&promptSamples[0]))
	}

	audio := C.SherpaOnnxOfflineTtsGenerateWithZipvoice(
		t.tts,
		cText,
		cPromptText,
		cPrompt,
		C.int(len(promptSamples)),
		C.int(promptSampleRate),
		C.float(speed),
		C.int(numSteps),
	)
	if audio == nil {
		return nil
	}

	return &rawAudio{
		samples:    unsafe.Pointer(audio.samples),
		n:          int(audio.n),
		sampleRate: int(audio.sample_rate),
		release: func() {
			C.SherpaOnnxDestroyOfflineTtsGeneratedAudio(audio)
		},
	}
}

func (t *cgoTTS) Destroy() {
	C.SherpaOnnxDestroyOfflineTts(t.tts)
}
