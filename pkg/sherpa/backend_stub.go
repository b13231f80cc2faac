//go:build !sherpa || !cgo

package sherpa

var nativeBackend backend = stubBackend{}

// stubBackend fails every creation so constructors report
// ErrNativeUnavailable.
type stubBackend struct{}

func (stubBackend) Available() bool { return false }

func (stubBackend) CreateSourceSeparation(*nativeSeparationConfig) separationNative { return nil }

func (stubBackend) CreateZipVoiceTTS(*nativeZipVoiceConfig) ttsNative { return nil }
