package blobstore

import (
	"context"
	"fmt"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a key/value blob store.
type Store interface {
	// Load returns the bytes stored under key.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save stores data and returns the key it was stored under.
	Save(ctx context.Context, key string, data []byte) (string, error)
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	// List returns all keys with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Deleter is implemented by stores that can remove blobs.
// Deleting a missing key is not an error.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Operation names reported in StorageError.
const (
	OpLoad = "load"
	OpSave = "save"
)

// StorageError reports a failed storage operation on a key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blobstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Load calls s.Load and wraps any failure in a StorageError.
func Load(ctx context.Context, s Store, key string) ([]byte, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: OpLoad, Key: key, Err: err}
	}
	return data, nil
}

// Save calls s.Save and wraps any failure in a StorageError.
func Save(ctx context.Context, s Store, key string, data []byte) (string, error) {
	newKey, err := s.Save(ctx, key, data)
	if err != nil {
		return "", &StorageError{Op: OpSave, Key: key, Err: err}
	}
	return newKey, nil
}
