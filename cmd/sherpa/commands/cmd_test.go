package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
)

// setupTestEnv points the CLI at an empty config directory.
func setupTestEnv(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.DirEnv, dir)
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// setupContext creates and selects a context holding the given service
// files.
func setupContext(t *testing.T, name string, services map[string]string) *config.Config {
	t.Helper()
	cfg := setupTestEnv(t)
	if err := cfg.AddContext(name); err != nil {
		t.Fatal(err)
	}
	if err := cfg.UseContext(name); err != nil {
		t.Fatal(err)
	}
	for svc, content := range services {
		if err := os.WriteFile(cfg.ServicePath(name, svc), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	contextName = ""
	formatOutput = "table"
	globalConfig = nil
	configLoadErr = nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		} else {
			stderr += err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestYAML writes a YAML file to a temp dir and returns its path.
func writeTestYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
