package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)
	if err := os.WriteFile(filepath.Join(dir, currentContextFile), []byte("gpu\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.CurrentContext != "gpu" {
		t.Errorf("CurrentContext = %q, want gpu", cfg.CurrentContext)
	}
}

func TestContextLifecycle(t *testing.T) {
	cfg, _ := LoadFrom(t.TempDir())

	for _, name := range []string{"cpu", "gpu"} {
		if err := cfg.AddContext(name); err != nil {
			t.Fatal(err)
		}
	}
	if err := cfg.AddContext("cpu"); err == nil {
		t.Error("duplicate AddContext succeeded")
	}

	names, err := cfg.ListContexts()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"cpu", "gpu"}) {
		t.Errorf("ListContexts = %v", names)
	}

	if err := cfg.UseContext("gpu"); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := LoadFrom(cfg.Dir)
	if reloaded.CurrentContext != "gpu" {
		t.Errorf("persisted context = %q, want gpu", reloaded.CurrentContext)
	}

	dir, ok, err := cfg.ResolveContext("")
	if err != nil || !ok || dir != cfg.ContextDir("gpu") {
		t.Errorf("ResolveContext(\"\") = %q, %v, %v", dir, ok, err)
	}
	if _, _, err := cfg.ResolveContext("missing"); err == nil {
		t.Error("ResolveContext of missing context succeeded")
	}

	if err := cfg.DeleteContext("gpu"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext after delete = %q", cfg.CurrentContext)
	}
	if _, ok, err := cfg.ResolveContext(""); ok || err != nil {
		t.Errorf("ResolveContext with no context = %v, %v", ok, err)
	}
	if err := cfg.DeleteContext("gpu"); err == nil {
		t.Error("second DeleteContext succeeded")
	}
}

func TestListContextsNoDir(t *testing.T) {
	cfg, _ := LoadFrom(filepath.Join(t.TempDir(), "missing"))
	names, err := cfg.ListContexts()
	if err != nil || names != nil {
		t.Fatalf("ListContexts = %v, %v", names, err)
	}
}

func TestValidateContextName(t *testing.T) {
	for _, name := range []string{"", ".", "..", ".hidden", "a/b", `a\b`} {
		if err := ValidateContextName(name); err == nil {
			t.Errorf("ValidateContextName(%q) = nil", name)
		}
	}
	for _, name := range []string{"cpu", "gpu-a100", "dev_1"} {
		if err := ValidateContextName(name); err != nil {
			t.Errorf("ValidateContextName(%q) = %v", name, err)
		}
	}
}
