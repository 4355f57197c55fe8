// Package storage persists the ledger snapshot under a single key of a
// key-value store. Three stores are provided: in-memory, one file per key in
// a directory, and a SQLite table.
package storage

import (
	"context"
	"errors"
)

// ErrInvalidKey is returned for keys that are empty or cannot be mapped to a
// storage location.
var ErrInvalidKey = errors.New("invalid storage key")

// KV is a string-keyed store of opaque values.
type KV interface {
	// Get returns the value stored under key. The bool is false when the key
	// has never been written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}
