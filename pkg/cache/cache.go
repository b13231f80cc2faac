// Package cache stores inference results keyed by model and input, so that
// repeated separation or synthesis requests skip the native call.
//
// Keys are hierarchical paths (e.g., ["separation", "<digest>"]) encoded
// with ':' as separator. The package includes a BadgerDB-backed store for
// production use and an in-memory store for testing.
package cache

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("cache: not found")

// Key is a hierarchical path represented as a slice of string segments.
// Segments must not contain ':'.
type Key []string

// String returns the encoded key.
func (k Key) String() string {
	return strings.Join(k, separator)
}

const separator = ":"

func parseKey(s string) Key {
	return Key(strings.Split(s, separator))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a byte-valued key-value store.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present
	// or expired.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries whose key starts with prefix, in
	// lexicographic order of the encoded key. An empty prefix lists all.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}

// prefixBytes returns the scan prefix for p. The trailing separator keeps
// "a:b" from matching "a:bc".
func prefixBytes(p Key) []byte {
	if len(p) == 0 {
		return nil
	}
	return []byte(p.String() + separator)
}
