// Package sherpa provides Go bindings for the sherpa-onnx C API, covering
// offline source separation (Spleeter, UVR) and ZipVoice voice-cloning TTS.
//
// The inference itself runs inside the native library. This package builds
// the C configuration structs, calls the exported functions, and copies the
// returned sample buffers into Go-owned slices before handing the native
// memory back to sherpa-onnx.
//
// # Architecture
//
// The package exposes two handle types:
//
//   - [SourceSeparation]: splits a waveform into stems
//   - [ZipVoiceTTS]: synthesizes speech in the voice of a reference prompt
//
// Usage flow:
//
//	ss, err := sherpa.NewSpleeter("vocals.onnx", "accompaniment.onnx", sherpa.SeparationConfig{})
//	if err != nil {
//		return err
//	}
//	defer ss.Close()
//
//	res, err := ss.Process(samples, 44100, 2)
//	for _, stem := range res.Stems {
//		// stem.Samples is owned by the caller
//	}
//
// # Linking
//
// The native library is linked via CGo when building with -tags sherpa.
// Point the compiler at the headers and libraries with CGO_CFLAGS and
// CGO_LDFLAGS:
//
//	CGO_CFLAGS="-I$SHERPA_ONNX/include" \
//	CGO_LDFLAGS="-L$SHERPA_ONNX/lib" \
//	go build -tags sherpa ./...
//
// Without the tag every constructor fails with [ErrNativeUnavailable].
//
// # Thread Safety
//
// Each handle serializes its own calls with a mutex; sherpa-onnx does not
// document whether concurrent calls on one instance are safe. Distinct
// handles share no locks and may run in parallel.
package sherpa
