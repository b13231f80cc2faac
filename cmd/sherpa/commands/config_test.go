package commands

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
)

func TestConfigAddUseContext(t *testing.T) {
	cfg := setupTestEnv(t)

	stdout, _, code := runCmd(t, "config", "add-context", "gpu")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(stdout, "✓ ") || !strings.Contains(stdout, `Context "gpu" created`) {
		t.Fatalf("stdout = %s", stdout)
	}
	if _, err := os.Stat(cfg.ContextDir("gpu")); err != nil {
		t.Fatalf("context dir: %v", err)
	}

	if _, stderr, code := runCmd(t, "config", "add-context", "gpu"); code == 0 || !strings.Contains(stderr, "already exists") {
		t.Fatalf("duplicate add: code=%d stderr=%s", code, stderr)
	}

	if _, _, code := runCmd(t, "config", "use-context", "gpu"); code != 0 {
		t.Fatalf("use-context exit %d", code)
	}
	stdout, _, _ = runCmd(t, "config", "current-context")
	if strings.TrimSpace(stdout) != "gpu" {
		t.Fatalf("current-context = %q, want gpu", stdout)
	}
}

func TestConfigUseMissingContext(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "config", "use-context", "nope")
	if code == 0 || !strings.Contains(stderr, "not found") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestConfigInvalidContextName(t *testing.T) {
	setupTestEnv(t)

	for _, name := range []string{"../escape", ".hidden", `a\b`} {
		if _, _, code := runCmd(t, "config", "add-context", name); code == 0 {
			t.Errorf("add-context %q succeeded", name)
		}
	}
}

func TestConfigList(t *testing.T) {
	setupContext(t, "cpu", map[string]string{"separation": "num_threads: 2\n"})
	if _, _, code := runCmd(t, "config", "add-context", "gpu"); code != 0 {
		t.Fatal("add-context failed")
	}

	stdout, _, code := runCmd(t, "config", "list", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	var got []struct {
		Name     string   `json:"name"`
		Current  bool     `json:"current"`
		Services []string `json:"services"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("parse %q: %v", stdout, err)
	}
	if len(got) != 2 {
		t.Fatalf("contexts = %d, want 2", len(got))
	}
	if got[0].Name != "cpu" || !got[0].Current || len(got[0].Services) != 1 {
		t.Errorf("cpu = %+v", got[0])
	}
	if got[1].Name != "gpu" || got[1].Current {
		t.Errorf("gpu = %+v", got[1])
	}
}

func TestConfigListEmpty(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "config", "list")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "No contexts configured") {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestConfigSetGetNested(t *testing.T) {
	cfg := setupContext(t, "cpu", nil)

	for _, kv := range [][2]string{
		{"spleeter.vocals", "/m/vocals.onnx"},
		{"spleeter.accompaniment", "/m/accompaniment.onnx"},
		{"num_threads", "4"},
	} {
		if _, stderr, code := runCmd(t, "config", "set", "cpu", "separation", kv[0], kv[1]); code != 0 {
			t.Fatalf("set %s: %s", kv[0], stderr)
		}
	}

	stdout, _, code := runCmd(t, "config", "get", "cpu", "separation", "spleeter.vocals")
	if code != 0 || strings.TrimSpace(stdout) != "/m/vocals.onnx" {
		t.Fatalf("get: code=%d stdout=%q", code, stdout)
	}

	sep, err := config.LoadService[config.Separation](cfg.ContextDir("cpu"), config.SeparationService)
	if err != nil {
		t.Fatal(err)
	}
	if sep.Spleeter == nil || sep.Spleeter.Accompaniment != "/m/accompaniment.onnx" {
		t.Errorf("spleeter = %+v", sep.Spleeter)
	}
	if sep.NumThreads != 4 {
		t.Errorf("num_threads = %d, want 4", sep.NumThreads)
	}

	if _, _, code := runCmd(t, "config", "get", "cpu", "separation", "uvr.model"); code == 0 {
		t.Error("get of missing key succeeded")
	}
}

func TestConfigSetMissingContext(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "config", "set", "nope", "cache", "enabled", "true")
	if code == 0 || !strings.Contains(stderr, "not found") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestConfigSetInvalidService(t *testing.T) {
	setupContext(t, "cpu", nil)

	if _, _, code := runCmd(t, "config", "set", "cpu", "../x", "k", "v"); code == 0 {
		t.Fatal("path-like service name accepted")
	}
}

func TestConfigShow(t *testing.T) {
	setupContext(t, "cpu", map[string]string{"cache": "enabled: true\nttl: 24h\n"})

	stdout, _, code := runCmd(t, "config", "show", "cpu", "cache")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "enabled: true") || !strings.Contains(stdout, "ttl: 24h") {
		t.Fatalf("stdout = %s", stdout)
	}
}

func TestConfigDeleteContext(t *testing.T) {
	cfg := setupContext(t, "cpu", nil)

	if _, _, code := runCmd(t, "config", "delete-context", "cpu"); code != 0 {
		t.Fatal("delete-context failed")
	}
	if _, err := os.Stat(cfg.ContextDir("cpu")); !os.IsNotExist(err) {
		t.Fatalf("context dir still exists: %v", err)
	}
	stdout, _, _ := runCmd(t, "config", "current-context")
	if !strings.Contains(stdout, "No current context") {
		t.Fatalf("current-context = %q", stdout)
	}
}
