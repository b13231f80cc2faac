package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
	"github.com/haivivi/sherpa/pkg/cache"
	"github.com/haivivi/sherpa/pkg/cli"
	"github.com/haivivi/sherpa/pkg/storage"
)

// loadService loads a service config from the selected context. A missing
// context or service file yields a zero value so that flags alone suffice.
func loadService[T any](service string) (*T, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	dir, ok, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(T), nil
	}
	v, err := config.LoadService[T](dir, service)
	if errors.Is(err, config.ErrServiceNotFound) {
		slog.Debug("no service config in context", "service", service, "dir", dir)
		return new(T), nil
	}
	return v, err
}

// openCache opens the badger result cache when enabled by flag or by the
// context's cache.yaml. It returns nil when caching is off.
func openCache(enabled bool) (cache.Store, error) {
	cc, err := loadService[config.Cache](config.CacheService)
	if err != nil {
		return nil, err
	}
	if !enabled && !cc.Enabled {
		return nil, nil
	}
	ttl, err := cc.ParseTTL()
	if err != nil {
		return nil, err
	}
	dir := cc.Dir
	if dir == "" {
		paths, err := cli.NewPaths("cli")
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureCacheDir(); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		dir = paths.CacheDir()
	}
	slog.Debug("opening result cache", "dir", dir, "ttl", ttl)
	return cache.NewBadger(cache.BadgerOptions{Dir: dir, TTL: ttl, Logger: slog.Default()})
}

// openOutputDir opens the store for an output directory. An empty dir
// falls back to storage.yaml and then to the working directory.
func openOutputDir(ctx context.Context, dir string) (storage.FileStore, error) {
	sc, err := loadService[config.Storage](config.StorageService)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = sc.Output
	}
	if dir == "" {
		dir = "."
	}
	return storage.Open(ctx, dir, sc.S3)
}

// openOutputFile splits an output file location into its store and the
// path within it.
func openOutputFile(ctx context.Context, out string) (storage.FileStore, string, error) {
	if strings.HasPrefix(out, "s3://") {
		i := strings.LastIndex(out, "/")
		if i < len("s3://") || i == len(out)-1 {
			return nil, "", fmt.Errorf("invalid output %q: want s3://bucket/key", out)
		}
		fs, err := openOutputDir(ctx, out[:i])
		return fs, out[i+1:], err
	}
	dir, name := filepath.Split(out)
	if name == "" {
		return nil, "", fmt.Errorf("invalid output %q: missing file name", out)
	}
	fs, err := openOutputDir(ctx, dir)
	return fs, name, err
}

// printResult writes v in the selected --format, using table for the
// default when headers are given.
func printResult(v any, title string, headers []string, rows [][]string) error {
	if formatOutput == "table" && headers != nil {
		fmt.Println(cli.RenderTable(cli.NewStyles(cli.DefaultTheme), title, headers, rows))
		return nil
	}
	if formatOutput == "table" {
		return cli.Output(v, cli.OutputOptions{Format: cli.FormatYAML})
	}
	f, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{Format: f})
}
