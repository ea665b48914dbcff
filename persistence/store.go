// Package persistence saves container state to pluggable key-value storage.
// The Extension loads a container's value once when it is built and saves
// it after every committed command. Values are stored JSON-encoded under
// the key prefix+name.
package persistence

import (
	"context"
	"errors"
	"io"
)

// Store translates between external storage and container keys.
// Implementations perform I/O on each call without caching.
type Store interface {
	// List returns all keys in the store.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for the specified keys. A missing key fails
	// with ErrKeyNotFound.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save persists entries, creating or overwriting as needed.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Entry is a key and its raw value.
type Entry struct {
	Key   string
	Value []byte
}

// Close releases s if it holds resources such as a database handle.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Sentinel errors for store operations.
var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrLoadFailed   = errors.New("load failed")
	ErrSaveFailed   = errors.New("save failed")
	ErrUnknownStore = errors.New("unknown store")
)
