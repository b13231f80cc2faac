package commands

import (
	"strings"
	"testing"

	"github.com/haivivi/sherpa/pkg/sherpa"
)

func TestServeNoModels(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "serve", "--addr", "127.0.0.1:0")
	if code == 0 || !strings.Contains(stderr, "no models configured") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestServeModelLoadFailure(t *testing.T) {
	setupContext(t, "cpu", map[string]string{"zipvoice": testZipVoiceYAML})

	_, stderr, code := runCmd(t, "serve", "--addr", "127.0.0.1:0")
	if code == 0 || !strings.Contains(stderr, sherpa.ErrCreationFailed.Error()) {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}
