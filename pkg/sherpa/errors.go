package sherpa

import "errors"

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrCreationFailed is returned when the native library refuses to
	// create an instance (missing model files, unsupported provider, ...).
	ErrCreationFailed = errors.New("sherpa: creation failed")

	// ErrProcessingFailed is returned when source separation fails or the
	// input cannot be handed to the native library.
	ErrProcessingFailed = errors.New("sherpa: processing failed")

	// ErrGenerationFailed is returned when speech generation fails or the
	// native result is inconsistent.
	ErrGenerationFailed = errors.New("sherpa: generation failed")

	// ErrClosed is returned by operations on a handle after Close.
	ErrClosed = errors.New("sherpa: handle closed")

	// ErrNativeUnavailable indicates the binary was built without the
	// sherpa-onnx native library (build with -tags sherpa).
	ErrNativeUnavailable = errors.New("sherpa: native library not available (build with -tags sherpa)")
)
