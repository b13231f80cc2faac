package commands

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/sherpa/pkg/audio/wav"
	"github.com/haivivi/sherpa/pkg/sherpa"
)

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.wav")
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(i%100) / 200
	}
	if err := wav.WriteFile(path, &wav.Audio{Samples: samples, SampleRate: 16000, NumChannels: 1}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSeparateNoModel(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "separate", writeTestWAV(t))
	if code == 0 || !strings.Contains(stderr, "no model configured") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestSeparateRequiresInput(t *testing.T) {
	setupTestEnv(t)

	if _, _, code := runCmd(t, "separate", "--uvr", "m.onnx"); code == 0 {
		t.Fatal("separate without inputs succeeded")
	}
}

func TestSeparateHalfSpleeter(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "separate", "--spleeter-vocals", "v.onnx", writeTestWAV(t))
	if code == 0 || !strings.Contains(stderr, "must be given together") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestSeparateBothModelsInContext(t *testing.T) {
	setupContext(t, "cpu", map[string]string{
		"separation": "spleeter:\n  vocals: v.onnx\n  accompaniment: a.onnx\nuvr:\n  model: u.onnx\n",
	})

	_, stderr, code := runCmd(t, "separate", writeTestWAV(t))
	if code == 0 || !strings.Contains(stderr, "both spleeter and uvr") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestSeparateModelLoadFailure(t *testing.T) {
	setupTestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.onnx")

	_, stderr, code := runCmd(t, "separate", "--uvr", missing, "-o", t.TempDir(), writeTestWAV(t))
	if code == 0 || !strings.Contains(stderr, sherpa.ErrCreationFailed.Error()) {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestSeparationSettingsFlagsOverride(t *testing.T) {
	setupContext(t, "cpu", map[string]string{
		"separation": "spleeter:\n  vocals: v.onnx\n  accompaniment: a.onnx\nnum_threads: 2\nprovider: cpu\n",
	})
	t.Cleanup(func() { sepUVRModel, sepNumThreads = "", 0 })

	globalConfig, configLoadErr = nil, nil
	sepUVRModel, sepNumThreads = "uvr.onnx", 8

	sc, err := separationSettings()
	if err != nil {
		t.Fatal(err)
	}
	m, err := sc.Model()
	if err != nil {
		t.Fatal(err)
	}
	if u, ok := m.(sherpa.UVRModel); !ok || u.Model != "uvr.onnx" {
		t.Errorf("model = %#v, want UVR uvr.onnx", m)
	}
	if sc.NumThreads != 8 || sc.Provider != "cpu" {
		t.Errorf("threads/provider = %d/%q", sc.NumThreads, sc.Provider)
	}
	if !strings.HasPrefix(sc.ModelID(), "uvr:") {
		t.Errorf("ModelID = %q", sc.ModelID())
	}
}

func TestParentLocation(t *testing.T) {
	tests := map[string]string{
		"s3://bucket/stems/song/stem-0.wav": "s3://bucket/stems/song",
		"/tmp/out/song/stem-1.wav":          "/tmp/out/song",
		"stem-0.wav":                        ".",
	}
	for in, want := range tests {
		if got := parentLocation(in); got != want {
			t.Errorf("parentLocation(%q) = %q, want %q", in, got, want)
		}
	}
}
