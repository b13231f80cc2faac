// Package config provides the configuration system for the sherpa CLI.
//
// Configuration is stored under os.UserConfigDir()/sherpa/, or under
// $SHERPA_CONFIG_DIR when set:
//
//	sherpa/
//	├── current-context          # plain text: name of current context
//	└── contexts/
//	    ├── default/
//	    │   ├── separation.yaml
//	    │   ├── zipvoice.yaml
//	    │   ├── cache.yaml
//	    │   └── storage.yaml
//	    └── gpu/
//	        └── ...
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirEnv overrides the configuration root directory.
	DirEnv = "SHERPA_CONFIG_DIR"

	appDir             = "sherpa"
	currentContextFile = "current-context"
	contextsDir        = "contexts"
)

// Config holds the root configuration state.
type Config struct {
	// Dir is the root configuration directory.
	Dir string

	// CurrentContext is the name of the active context.
	CurrentContext string
}

// Load loads the configuration from $SHERPA_CONFIG_DIR or the default
// location.
func Load() (*Config, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return LoadFrom(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom loads the configuration from a specific root directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, currentContextFile))
	if err == nil {
		cfg.CurrentContext = strings.TrimSpace(string(data))
	}
	return cfg, nil
}

// ValidateContextName rejects names that are unsafe as directory names.
func ValidateContextName(name string) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid context name %q", name)
	}
	return nil
}

// ContextsDir returns the path to the contexts directory.
func (c *Config) ContextsDir() string {
	return filepath.Join(c.Dir, contextsDir)
}

// ContextDir returns the directory path for a named context.
func (c *Config) ContextDir(name string) string {
	return filepath.Join(c.Dir, contextsDir, name)
}

// ResolveContext returns the directory for the given context name, or the
// current context if name is empty. ok is false when no context applies,
// which callers treat as "no stored configuration".
func (c *Config) ResolveContext(name string) (dir string, ok bool, err error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return "", false, nil
	}
	dir = c.ContextDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", false, fmt.Errorf("context %q not found", name)
	}
	return dir, true, nil
}

// ListContexts returns the names of all available contexts.
func (c *Config) ListContexts() ([]string, error) {
	entries, err := os.ReadDir(c.ContextsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// AddContext creates a new context directory.
func (c *Config) AddContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("context %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create context %q: %w", name, err)
	}
	return nil
}

// DeleteContext removes a context directory and all its service configs.
func (c *Config) DeleteContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("context %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete context %q: %w", name, err)
	}
	if c.CurrentContext == name {
		c.CurrentContext = ""
		return c.saveCurrentContext()
	}
	return nil
}

// UseContext switches the current context.
func (c *Config) UseContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	if _, err := os.Stat(c.ContextDir(name)); os.IsNotExist(err) {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.saveCurrentContext()
}

func (c *Config) saveCurrentContext() error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(c.Dir, currentContextFile)
	return os.WriteFile(path, []byte(c.CurrentContext+"\n"), 0644)
}
