// Package storage persists separated stems and synthesized audio to a local
// directory or to an S3-compatible bucket.
//
// Paths are forward-slash separated and relative to the store root. [Open]
// selects the backend from a URI: "s3://bucket/prefix" for S3, anything
// else for a local directory.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// FileStore is a minimal interface for file-oriented storage.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading. The caller must close it.
	// A missing file yields an error wrapping os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any existing file.
	// The caller must close the returned writer to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// Location returns a human-readable location for path (a filesystem
	// path or an s3:// URL).
	Location(path string) string
}

// putter is implemented by stores that upload whole buffers more
// efficiently than through Write.
type putter interface {
	Put(ctx context.Context, path string, data []byte) error
}

// WriteFile stores data at path.
func WriteFile(ctx context.Context, fs FileStore, path string, data []byte) error {
	if p, ok := fs.(putter); ok {
		return p.Put(ctx, path, data)
	}
	w, err := fs.Write(ctx, path)
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// ReadFile returns the contents of path.
func ReadFile(ctx context.Context, fs FileStore, path string) ([]byte, error) {
	r, err := fs.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// cleanPath normalises p and rejects paths that escape the store root.
func cleanPath(p string) (string, error) {
	c := path.Clean(strings.TrimLeft(p, "/"))
	switch {
	case c == "." || c == "":
		return "", fmt.Errorf("storage: empty path %q", p)
	case c == ".." || strings.HasPrefix(c, "../"):
		return "", fmt.Errorf("storage: path %q escapes the store root", p)
	}
	return c, nil
}

// contentType guesses the MIME type of the files this project writes.
func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".wav":
		return "audio/wav"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
