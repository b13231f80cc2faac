package sherpa

import (
	"os"
	"runtime"
	"strings"
)

// ProviderEnv overrides the default ONNX Runtime execution provider.
const ProviderEnv = "SHERPA_ONNX_PROVIDER"

// ProviderResolver supplies the execution provider name used when a config
// leaves Provider empty. It is consulted once, at construction time.
type ProviderResolver interface {
	Provider() string
}

// ProviderFunc adapts a function to ProviderResolver.
type ProviderFunc func() string

// Provider implements ProviderResolver.
func (f ProviderFunc) Provider() string { return f() }

// DefaultProviderResolver picks the provider from SHERPA_ONNX_PROVIDER, or
// from the platform when the variable is unset.
var DefaultProviderResolver ProviderResolver = ProviderFunc(DefaultProvider)

// DefaultProvider returns the recommended provider for this platform.
// On macOS, CoreML runs models on the Neural Engine when available.
func DefaultProvider() string {
	if p := strings.TrimSpace(os.Getenv(ProviderEnv)); p != "" {
		return p
	}
	if runtime.GOOS == "darwin" {
		return "coreml"
	}
	return "cpu"
}

// AvailableProviders returns the providers sherpa-onnx may offer on this
// platform. Whether a GPU provider actually works depends on how the native
// library was built.
func AvailableProviders() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"cpu", "coreml"}
	case "windows":
		return []string{"cpu", "cuda", "directml"}
	default:
		return []string{"cpu", "cuda"}
	}
}

// resolveProvider returns provider if set, otherwise asks r (or the default
// resolver when r is nil).
func resolveProvider(provider string, r ProviderResolver) string {
	if provider != "" {
		return provider
	}
	if r == nil {
		r = DefaultProviderResolver
	}
	return r.Provider()
}
